package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// bind makes each flag of cmd override its config key. Keys map to flag
// names; an unknown flag name is a programming error.
func bind(v *viper.Viper, cmd *cobra.Command, keys map[string]string) {
	for key, name := range keys {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			f = cmd.PersistentFlags().Lookup(name)
		}
		if err := v.BindPFlag(key, f); err != nil {
			panic(fmt.Sprintf("binding --%s to %s: %v", name, key, err))
		}
	}
}
