// Package cli parses the command line of the pinpoint binary.
package cli

import (
	"errors"
	"fmt"

	"github.com/jessevdk/go-flags"
	"github.com/raphi011/pinpoint/internal/config"
)

// Option defines command line options.
type Option struct {
	Libraries  []string `short:"l" long:"library" description:"plugin library that provides test classes (repeatable)"`
	Class      string   `short:"c" long:"class" description:"class of the test method to run once"`
	Method     string   `short:"m" long:"method" description:"test method to run once"`
	Server     bool     `short:"s" long:"server" description:"serve the http api and run the configured schedules"`
	Port       int      `short:"p" long:"port" description:"port used by the server, 0 picks a random one" default:"-1"`
	Database   string   `short:"d" long:"database" description:"sqlite database file, in-memory if empty"`
	ConfigFile string   `long:"config" description:"yaml config file"`
	Instance   string   `long:"instance" description:"name of this instance"`
	Debug      bool     `long:"debug" description:"debug mode"`
}

// Parse returns parsed command-line flags in Option struct
func Parse(args []string) (*Option, error) {
	opt := &Option{}

	parser := flags.NewParser(opt, flags.Default)
	parser.Name = "pinpoint"
	parser.Usage = "[OPTIONS]"

	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}

	if !opt.Server && (opt.Class == "" || opt.Method == "") {
		return nil, errors.New("either --server or --class and --method are required")
	}

	return opt, nil
}

func IsHelp(err error) bool {
	return flags.WroteHelp(err)
}

// Config loads the config file, if any, and applies the command line on top of it.
func (o *Option) Config() (config.Config, error) {
	c := config.Default()

	if o.ConfigFile != "" {
		var err error
		if c, err = config.Load(o.ConfigFile); err != nil {
			return c, err
		}
	}

	c.Libraries = append(c.Libraries, o.Libraries...)

	if o.Port >= 0 {
		c.Port = o.Port
	}
	if o.Database != "" {
		c.DatabaseFile = o.Database
	}
	if o.Instance != "" {
		c.Instance = o.Instance
	}
	if o.Debug {
		c.LogLevel = "debug"
	}

	if err := c.Validate(); err != nil {
		return c, fmt.Errorf("validating config: %w", err)
	}

	return c, nil
}
