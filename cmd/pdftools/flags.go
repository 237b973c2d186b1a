package main

import (
	"github.com/spf13/pflag"
)

// bind makes flag override the config key when it is set on the command line.
func (c *cli) bind(flag *pflag.Flag, key string) {
	if flag == nil {
		panic("unknown flag for " + key)
	}
	if err := c.v.BindPFlag(key, flag); err != nil {
		panic(err)
	}
}
