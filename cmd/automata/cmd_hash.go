package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"automata/internal/config"
	"automata/internal/platform"

	"github.com/spf13/cobra"
)

var hashSet bool

var hashCmd = &cobra.Command{
	Use:   "hash [password]",
	Short: "Hash a panic password",
	Long: `Prints the bcrypt hash of password for panic.password_hash. Reads the
password from stdin when no argument is given. With --set the hash is written
into the config file.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHash,
}

func init() {
	hashCmd.Flags().BoolVar(&hashSet, "set", false, "Store the hash in the config file")
}

func runHash(cmd *cobra.Command, args []string) error {
	var password string
	if len(args) == 1 {
		password = args[0]
	} else {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("reading password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}
	if password == "" {
		return errors.New("empty password")
	}

	hash, err := platform.HashPassword(password)
	if err != nil {
		return err
	}

	if !hashSet {
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	cfg.Panic.PasswordHash = hash
	if err := cfg.Save(configPath); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "panic password stored in %s\n", configPath)
	return nil
}
