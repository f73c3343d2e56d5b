package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hyprpal/hyprgrid/internal/util"
)

func main() {
	logLevel := flag.String("log-level", "warn", "log level (trace|debug|info|warn|error)")
	echo := flag.Bool("echo", false, "print the decoded scenario before running it")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <scenario.yaml|->\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	logger := util.NewLogger(util.ParseLogLevel(*logLevel))

	data, err := readInput(flag.Arg(0))
	if err != nil {
		exitErr(fmt.Errorf("read scenario: %w", err))
	}
	sc, err := ParseScenario(data)
	if err != nil {
		exitErr(err)
	}
	if *echo {
		if err := marshalYAML(sc); err != nil {
			logger.Warnf("failed to print scenario: %v", err)
		}
		fmt.Println()
	}
	if err := Run(sc, os.Stdout, logger); err != nil {
		exitErr(err)
	}
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func exitErr(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

func marshalYAML(v any) error {
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(v)
}
