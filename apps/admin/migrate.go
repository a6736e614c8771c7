package main

import (
	"fmt"
	"strconv"
)

// checkMigrateArgs rejects malformed migration commands before they reach the database.
func checkMigrateArgs(command string, args []string) error {
	switch command {
	case "up", "up-by-one", "down", "redo", "reset", "status", "version":
		return nil
	case "up-to", "down-to":
		if len(args) == 0 {
			return fmt.Errorf("%s must be of form: migrate %s VERSION", command, command)
		}
		if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
			return fmt.Errorf("version must be a number (got '%s')", args[0])
		}
		return nil
	}
	return fmt.Errorf("%q: no such command", command)
}

func (cli *commandLine) runMigration(command string, args ...string) error {
	if err := checkMigrateArgs(command, args); err != nil {
		return err
	}
	return cli.migrate(command, args...)
}
