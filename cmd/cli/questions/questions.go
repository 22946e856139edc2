package questions

import (
	"fmt"
	"os"

	"github.com/beforeigo/beforeigo/internal/catalog"
	"github.com/beforeigo/beforeigo/internal/models"
	"github.com/spf13/cobra"
)

var Group = &cobra.Group{
	ID:    "questions",
	Title: "Question catalog",
}

var Validate = &cobra.Command{
	Use:     "validate",
	GroupID: "questions",
	Short:   "Validate the question catalog",
	Long:    "Parses the bundled question catalog and prints the question counts per role",
	Run: func(cmd *cobra.Command, _ []string) {
		c, err := catalog.Default()
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "catalog error: %v\n", err)
			os.Exit(1)
		}
		for _, role := range models.Roles {
			qs := c.ForRole(role)
			if len(qs) == 0 {
				_, _ = fmt.Fprintf(os.Stderr, "role %s has no questions\n", role)
				os.Exit(1)
			}
			chapters := catalog.Categories(qs)
			fmt.Printf("%-12s %d chapters, %d questions\n", role.Label(), len(chapters), len(qs))
		}
		fmt.Println("catalog OK")
	},
}
