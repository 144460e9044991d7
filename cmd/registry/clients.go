package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/registryhq/registry/adapters/clock"
	"github.com/registryhq/registry/adapters/database"
	"github.com/registryhq/registry/adapters/hasher"
	"github.com/registryhq/registry/adapters/idgen"
	"github.com/registryhq/registry/app"
	"github.com/registryhq/registry/bootstrap"
	"github.com/registryhq/registry/config"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var clientsCmd = &cobra.Command{
	Use:   "clients",
	Short: "Manage API clients",
	Long: `Manage registry API clients.

Clients authenticate against the API with a name and secret and get a
session token back. Create one per consumer.

Examples:
  registry clients list
  registry clients create station-1 --secret=s3cret
  registry clients delete station-1`,
}

var clientsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all clients",
	RunE:  runClientsList,
}

var clientsCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new client",
	Args:  cobra.ExactArgs(1),
	RunE:  runClientsCreate,
}

var clientsDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a client",
	Args:  cobra.ExactArgs(1),
	RunE:  runClientsDelete,
}

var clientSecret string

func init() {
	rootCmd.AddCommand(clientsCmd)
	clientsCmd.AddCommand(clientsListCmd)
	clientsCmd.AddCommand(clientsCreateCmd)
	clientsCmd.AddCommand(clientsDeleteCmd)

	clientsCreateCmd.Flags().StringVar(&clientSecret, "secret", "", "client secret (required)")
	clientsCreateCmd.MarkFlagRequired("secret")
}

// openSessions builds a session service against the registry database,
// without starting the full application.
func openSessions() (*app.SessionService, func(), error) {
	doc, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("config error: %w", err)
	}
	params, err := bootstrap.DatabaseParams(doc)
	if err != nil {
		return nil, nil, err
	}

	db, err := database.Open(params, "registry")
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	svc := app.NewSessionService(
		database.NewSessionStore(db),
		database.NewClientStore(db),
		hasher.NewBcrypt(0),
		clock.Real{},
		idgen.UUID{},
		app.DefaultSessionTTL,
		zerolog.Nop(),
	)
	return svc, func() { db.Close() }, nil
}

func runClientsList(cmd *cobra.Command, args []string) error {
	svc, cleanup, err := openSessions()
	if err != nil {
		return err
	}
	defer cleanup()

	clients, err := svc.ListClients(context.Background())
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tCREATED")
	for _, c := range clients {
		fmt.Fprintf(w, "%s\t%s\n", c.Name, c.CreatedAt.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func runClientsCreate(cmd *cobra.Command, args []string) error {
	svc, cleanup, err := openSessions()
	if err != nil {
		return err
	}
	defer cleanup()

	if err := svc.CreateClient(context.Background(), args[0], clientSecret); err != nil {
		return err
	}
	fmt.Printf("%s Created client: %s\n", checkMark, args[0])
	return nil
}

func runClientsDelete(cmd *cobra.Command, args []string) error {
	svc, cleanup, err := openSessions()
	if err != nil {
		return err
	}
	defer cleanup()

	if err := svc.DeleteClient(context.Background(), args[0]); err != nil {
		return err
	}
	fmt.Printf("%s Deleted client: %s\n", checkMark, args[0])
	return nil
}
