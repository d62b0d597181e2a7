package cmd

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// bindServeFlags maps serve's flags onto viper keys. Unchanged flag
// defaults sit below config-file values in viper's precedence, so flags
// only override when actually passed.
func bindServeFlags(flags *pflag.FlagSet) {
	_ = viper.BindPFlag("server.port", flags.Lookup("port"))
	_ = viper.BindPFlag("server.host", flags.Lookup("host"))
	_ = viper.BindPFlag("workspace.dir", flags.Lookup("workspace"))
}
