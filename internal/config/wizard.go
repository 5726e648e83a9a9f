package config

import (
	"bufio"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/dooshek/ventify/internal/fileops"
	"github.com/dooshek/ventify/internal/logger"
	"github.com/dooshek/ventify/internal/types"
	"github.com/fatih/color"
)

// RunWizard interactively builds ventify.yaml in the default config directory
func RunWizard() error {
	fileOps, err := fileops.NewDefaultFileOps()
	if err != nil {
		return fmt.Errorf("failed to initialize file operations: %w", err)
	}
	return runWizard(os.Stdin, os.Stdout, fileOps)
}

func runWizard(in io.Reader, out io.Writer, fileOps fileops.FileOps) error {
	bold := color.New(color.Bold)
	cyan := color.New(color.FgCyan)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	bold.Fprintln(out, "\n🌿 Welcome to the Ventify configuration wizard!")
	fmt.Fprintln(out, "\nThis wizard sets up where finished venting sessions are sent.")

	reader := bufio.NewReader(in)
	defaults := Default()

	cfg := &types.Config{}

	for {
		cyan.Fprintln(out, "\nPlatform API base URL (leave empty to keep sessions local only):")
		baseURL, err := prompt(reader, "")
		if err != nil {
			logger.Error("Failed to read input", err)
			return err
		}
		if baseURL != "" {
			if u, err := url.Parse(baseURL); err != nil || u.Scheme == "" || u.Host == "" {
				yellow.Fprintln(out, "That does not look like an absolute URL, please try again.")
				continue
			}
		}
		cfg.API.BaseURL = strings.TrimRight(baseURL, "/")
		break
	}

	cyan.Fprintf(out, "\nSession type tag [%s]: ", defaults.SessionType)
	sessionType, err := prompt(reader, defaults.SessionType)
	if err != nil {
		return err
	}
	cfg.SessionType = sessionType

	cyan.Fprint(out, "\nEnable the live feed for the browser UI? [y/N]: ")
	answer, err := prompt(reader, "n")
	if err != nil {
		return err
	}
	if answer == "y" || answer == "yes" {
		cyan.Fprintf(out, "Feed listen address [%s]: ", defaults.Feed.Addr)
		addr, err := prompt(reader, defaults.Feed.Addr)
		if err != nil {
			return err
		}
		cfg.Feed.Enabled = true
		cfg.Feed.Addr = addr
	}

	if err := SaveConfigTo(fileOps, cfg); err != nil {
		logger.Error("Failed to save config", err)
		return err
	}

	green.Fprintln(out, "\n✅ Configuration saved successfully!")
	fmt.Fprintf(out, "Config file: %s/%s\n", fileOps.GetConfigDir(), configFilename)
	return nil
}

// prompt reads one line, strips control characters and lower-cases answers
// that look like yes/no. Empty input yields def.
func prompt(reader *bufio.Reader, def string) (string, error) {
	response, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}

	response = strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, strings.TrimSpace(response))

	if response == "" {
		return def, nil
	}
	switch strings.ToLower(response) {
	case "y", "yes", "n", "no":
		return strings.ToLower(response), nil
	}
	return response, nil
}
