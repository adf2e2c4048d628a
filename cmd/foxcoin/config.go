package main

import (
	"fmt"
	"net"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/valency/foxcoin/crypto"
	"github.com/valency/foxcoin/params"
	"github.com/valency/foxcoin/utils"
)

const envPrefix = "FOXCOIN"

type config struct {
	IP        string     `mapstructure:"ip"`
	P2PPort   int        `mapstructure:"p2p_port"`
	HTTPPort  int        `mapstructure:"http_port"`
	HTTPHost  string     `mapstructure:"http_host"`
	Peers     []string   `mapstructure:"peers"`
	MaxPeers  int        `mapstructure:"max_peers"`
	LogLevel  string     `mapstructure:"log_level"`
	LogFormat string     `mapstructure:"log_format"`
	Key       keyConfig  `mapstructure:"key"`
	HTTP      httpConfig `mapstructure:"http"`
}

type keyConfig struct {
	Type int    `mapstructure:"type"`
	Path string `mapstructure:"path"`
}

type httpConfig struct {
	CORSAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
}

// flag name -> config key
var flagKeys = map[string]string{
	"ip":         "ip",
	"p2p-port":   "p2p_port",
	"http-port":  "http_port",
	"http-host":  "http_host",
	"peers":      "peers",
	"max-peers":  "max_peers",
	"log-level":  "log_level",
	"log-format": "log_format",
	"key-type":   "key.type",
	"key-path":   "key.path",
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("ip", "0.0.0.0")
	v.SetDefault("p2p_port", params.DefaultP2PPort)
	v.SetDefault("http_port", params.DefaultHTTPPort)
	v.SetDefault("http_host", "127.0.0.1")
	v.SetDefault("peers", []string{})
	v.SetDefault("max_peers", params.DefaultMaxPeers)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", utils.LogFormatConsole)
	v.SetDefault("key.type", crypto.EphemeralKeyType)
	v.SetDefault("key.path", "")
	v.SetDefault("http.cors_allowed_origins", []string{})

	// FOXCOIN_P2P_PORT, FOXCOIN_KEY_TYPE ...
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// the unprefixed names are still honored
	v.BindEnv("http_port", envPrefix+"_HTTP_PORT", "HTTP_PORT")
	v.BindEnv("p2p_port", envPrefix+"_P2P_PORT", "P2P_PORT")
	v.BindEnv("peers", envPrefix+"_PEERS", "PEERS")
	return v
}

func addFlags(flags *pflag.FlagSet) {
	flags.String("ip", "0.0.0.0", "p2p listen ip")
	flags.Int("p2p-port", params.DefaultP2PPort, "p2p listen port")
	flags.Int("http-port", params.DefaultHTTPPort, "http listen port")
	flags.String("http-host", "127.0.0.1", "http listen host")
	flags.StringSlice("peers", nil, "initial peers, ws://host:port or host:port")
	flags.Int("max-peers", params.DefaultMaxPeers, "max connected peers")
	flags.String("log-level", "info", "debug, info, warn or error")
	flags.String("log-format", utils.LogFormatConsole, "console or json")
	flags.Int("key-type", crypto.EphemeralKeyType, "0 ephemeral, 1 plain key file, 2 sealed key file")
	flags.String("key-path", "", "directory of the key file")
}

// bindFlags makes the flags set on the command line override other sources
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return err
		}
	}
	return nil
}

// loadConfig merges flags, environment, the optional config file and defaults
func loadConfig(v *viper.Viper, file string) (*config, error) {
	if len(file) != 0 {
		if err := utils.AccessCheck(file); err != nil {
			return nil, err
		}
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file failed:%v", err)
		}
	}

	conf := &config{}
	if err := v.Unmarshal(conf); err != nil {
		return nil, fmt.Errorf("config parse failed:%v", err)
	}
	conf.Peers = cleanList(conf.Peers)
	conf.HTTP.CORSAllowedOrigins = cleanList(conf.HTTP.CORSAllowedOrigins)

	if err := verifyConfig(conf); err != nil {
		return nil, err
	}
	return conf, nil
}

// cleanList splits comma separated items and drops the empty ones
func cleanList(items []string) []string {
	result := []string{}
	for _, item := range items {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); len(part) != 0 {
				result = append(result, part)
			}
		}
	}
	return result
}

func verifyConfig(c *config) error {
	if ip := net.ParseIP(c.IP); ip == nil {
		return fmt.Errorf("invalid ip:%s", c.IP)
	}

	if c.P2PPort <= 0 || c.P2PPort > 65535 {
		return fmt.Errorf("invalid p2p port:%d", c.P2PPort)
	}

	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid http port:%d", c.HTTPPort)
	}

	if len(c.HTTPHost) == 0 {
		return fmt.Errorf("invalid http host")
	}

	if c.MaxPeers <= 0 {
		return fmt.Errorf("invalid max peer number:%d", c.MaxPeers)
	}

	if _, err := utils.ParseLogLevel(c.LogLevel); err != nil {
		return err
	}

	if c.LogFormat != utils.LogFormatConsole && c.LogFormat != utils.LogFormatJSON {
		return fmt.Errorf("invalid log format:%s", c.LogFormat)
	}

	switch c.Key.Type {
	case crypto.EphemeralKeyType:
	case crypto.PlainKeyType, crypto.SealKeyType:
		if err := utils.AccessCheck(c.Key.Path); err != nil {
			return err
		}
	default:
		return fmt.Errorf("invalid key type:%d", c.Key.Type)
	}

	for _, p := range c.Peers {
		if _, err := utils.PeerURL(p); err != nil {
			return fmt.Errorf("invalid peer %s: %v", p, err)
		}
	}
	return nil
}
