package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"xqcrawl/pkg/session"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage stored cookies",
	Long: `Manage the Xueqiu session cookies used for crawling.

Cookies can live in config/cookies.json, the XQCRAWL_COOKIES environment
variable, or the system keychain. Importing moves them into the keychain
so no credential file needs to stay on disk.

To get cookie values:
1. Log into xueqiu.com in your browser
2. Open Developer Tools (F12)
3. Go to Application/Storage > Cookies
4. Copy the cookie values into a JSON object of name to value`,
}

var authImportCmd = &cobra.Command{
	Use:     "import <cookies.json>",
	Short:   "Store a cookies file in the system keychain",
	Example: `  xqcrawl auth import config/cookies.json`,
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := session.SaveToKeyring(args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Cookies stored in the system keychain. The file can be deleted.")
	},
}

var authClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove cookies from the system keychain",
	Run: func(cmd *cobra.Command, args []string) {
		if err := session.ClearKeyring(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Keychain cookies removed.")
	},
}

func init() {
	authCmd.AddCommand(authImportCmd)
	authCmd.AddCommand(authClearCmd)
	rootCmd.AddCommand(authCmd)
}
