package main

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/valency/foxcoin/params"
)

const envPrefix = "FOXCOIN_CLIENT"

var defaultServer = fmt.Sprintf("http://127.0.0.1:%d", params.DefaultHTTPPort)

type config struct {
	Server  string        `mapstructure:"server"`
	Timeout time.Duration `mapstructure:"timeout"`
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("server", defaultServer)
	v.SetDefault("timeout", 30*time.Second)
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	return v
}

func addFlags(flags *pflag.FlagSet) {
	flags.String("server", defaultServer, "http address of the foxcoin node")
	flags.Duration("timeout", 30*time.Second, "request timeout")
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for _, name := range []string{"server", "timeout"} {
		if err := v.BindPFlag(name, flags.Lookup(name)); err != nil {
			return err
		}
	}
	return nil
}

func loadConfig(v *viper.Viper) (*config, error) {
	conf := &config{}
	if err := v.Unmarshal(conf); err != nil {
		return nil, fmt.Errorf("config parse failed:%v", err)
	}
	if err := verifyConfig(conf); err != nil {
		return nil, err
	}
	return conf, nil
}

func verifyConfig(c *config) error {
	c.Server = strings.TrimRight(strings.TrimSpace(c.Server), "/")
	u, err := url.Parse(c.Server)
	if err != nil {
		return fmt.Errorf("invalid server:%v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid server scheme:%q", u.Scheme)
	}
	if len(u.Host) == 0 {
		return fmt.Errorf("invalid server:missing host")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("invalid timeout:%v", c.Timeout)
	}
	return nil
}
