package cmd

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tachi-labs/paygate/schema"
)

const envPrefix = "PAYGATE"

var (
	cfgFile string
	cfg     schema.Config
)

var rootCmd = &cobra.Command{
	Use:     "paygate",
	Short:   "pay per crawl gateway",
	Long:    `paygate charges automated crawlers per request before they reach the origin`,
	Version: "v0.1.0",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig()
	},
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "cfg", "", "yaml config file (default ./paygate.yaml)")
}

// loadConfig merges the yaml file with PAYGATE_* env vars, e.g. PAYGATE_REDIS_ADDR for redis.addr.
// Without --cfg a missing ./paygate.yaml is fine as long as env covers the required keys.
func loadConfig() error {
	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName("paygate")
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvs(v, reflect.TypeOf(cfg), "")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
		fmt.Fprintln(os.Stderr, "no paygate.yaml found, using env only")
	} else {
		fmt.Fprintln(os.Stderr, "using config file:", v.ConfigFileUsed())
	}

	return v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "yaml"
	})
}

// bindEnvs registers every yaml key of t with viper; AutomaticEnv alone only sees keys present in the file.
func bindEnvs(v *viper.Viper, t reflect.Type, prefix string) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := strings.Split(f.Tag.Get("yaml"), ",")[0]
		if tag == "" || tag == "-" {
			continue
		}
		key := prefix + tag
		if f.Type.Kind() == reflect.Struct {
			bindEnvs(v, f.Type, key+".")
			continue
		}
		v.BindEnv(key)
	}
}
