// Package main provides a small command-line client over the neo4rs
// driver, for smoke-testing a Bolt endpoint from a shell.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	neo4rs "github.com/neo4j-labs/neo4rs-sub001"
)

var (
	uri      string
	user     string
	password string
	database string
	config   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "boltcli",
		Short: "Run Cypher statements against a Bolt endpoint",
	}
	rootCmd.PersistentFlags().StringVar(&uri, "uri", "bolt://localhost:7687", "Bolt connection URI")
	rootCmd.PersistentFlags().StringVar(&user, "user", "neo4j", "username")
	rootCmd.PersistentFlags().StringVar(&password, "password", "", "password")
	rootCmd.PersistentFlags().StringVar(&database, "db", "", "database name")
	rootCmd.PersistentFlags().StringVar(&config, "config", "", "YAML config file (overrides the above flags)")

	runCmd := &cobra.Command{
		Use:   "run [cypher]",
		Short: "Execute one statement and print its rows",
		Args:  cobra.ExactArgs(1),
		RunE:  runQuery,
	}
	rootCmd.AddCommand(runCmd)

	pingCmd := &cobra.Command{
		Use:   "ping",
		Short: "Dial the endpoint and report pool stats",
		RunE:  runPing,
	}
	rootCmd.AddCommand(pingCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (neo4rs.Config, error) {
	if config != "" {
		return neo4rs.LoadConfigFile(config)
	}
	return neo4rs.Config{
		URI:      uri,
		User:     user,
		Password: password,
		Database: database,
	}, nil
}

func runPing(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	g, err := neo4rs.Connect(ctx, cfg, nil)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer g.Close(context.Background())
	stats := g.Stats()
	fmt.Printf("connected: active=%d idle=%d total=%d max=%d\n", stats.Active, stats.Idle, stats.Total, stats.MaxConnections)
	return nil
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	g, err := neo4rs.Connect(ctx, cfg, nil)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer g.Close(context.Background())

	cur, err := g.Execute(ctx, neo4rs.NewQuery(args[0]))
	if err != nil {
		return fmt.Errorf("execute: %w", err)
	}
	defer cur.Close(ctx)

	fmt.Println(strings.Join(cur.Keys(), "\t"))
	n := 0
	for {
		rec, ok, err := cur.Next(ctx)
		if err != nil {
			return fmt.Errorf("fetching rows: %w", err)
		}
		if !ok {
			break
		}
		printRow(rec)
		n++
	}
	fmt.Fprintf(os.Stderr, "%d rows\n", n)
	return nil
}

func printRow(rec neo4rs.Record) {
	parts := make([]string, len(rec.Values()))
	for i, v := range rec.Values() {
		parts[i] = fmt.Sprintf("%v", v)
	}
	fmt.Println(strings.Join(parts, "\t"))
}
