// Command spec-manager administers the Postgres spec catalog that drives
// catalog mode. Specs can be imported, activated, and given credentials
// either with one-shot commands or from an interactive shell.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/apiforge/mcpgen/pkg/config"
	"github.com/apiforge/mcpgen/pkg/source"
	"github.com/apiforge/mcpgen/pkg/spec"
	"github.com/apiforge/mcpgen/pkg/store"
)

func main() {
	if len(os.Args) < 2 {
		printHelp()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatalf("DATABASE_URL must be set")
	}

	catalog, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to open spec catalog: %v", err)
	}
	defer catalog.Close()

	if err := run(catalog, os.Args[1], os.Args[2:]); err != nil {
		log.Fatalf("%v", err)
	}
}

func run(catalog *store.Store, command string, args []string) error {
	switch command {
	case "list":
		return handleList(catalog, false)
	case "active":
		return handleList(catalog, true)
	case "import":
		return handleImport(catalog, args)
	case "activate":
		return handleSetActive(catalog, args, true)
	case "deactivate":
		return handleSetActive(catalog, args, false)
	case "delete":
		return handleDelete(catalog, args)
	case "set-credential":
		return handleSetCredential(catalog, args)
	case "shell":
		return runShell(catalog)
	case "help":
		printHelp()
		return nil
	default:
		printHelp()
		return fmt.Errorf("unknown command: %s", command)
	}
}

func printHelp() {
	fmt.Println("OpenAPI Spec Catalog Manager")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  list                                    List all specs in the catalog")
	fmt.Println("  active                                  List only active specs")
	fmt.Println("  import <file-or-url> <name> [endpoint]  Import a spec into the catalog")
	fmt.Println("  activate <id>                           Activate a spec by ID")
	fmt.Println("  deactivate <id>                         Deactivate a spec by ID")
	fmt.Println("  delete <id>                             Delete a spec by ID")
	fmt.Println("  set-credential <id> <type> <value>      Store a credential (basic, bearer, api_key)")
	fmt.Println("  shell                                   Interactive management shell")
	fmt.Println("  help                                    Show this help message")
	fmt.Println("")
	fmt.Println("Examples:")
	fmt.Println("  spec-manager import weather.yaml weather /weather")
	fmt.Println("  spec-manager activate 1")
	fmt.Println("  spec-manager set-credential 1 bearer \"your_token_here\"")
	fmt.Println("")
	fmt.Println("Environment Variables:")
	fmt.Println("  DATABASE_URL                            PostgreSQL connection string")
}

func handleList(catalog *store.Store, activeOnly bool) error {
	var records []*store.SpecRecord
	var err error
	if activeOnly {
		records, err = catalog.GetActive()
	} else {
		records, err = catalog.GetAll()
	}
	if err != nil {
		return fmt.Errorf("failed to get specs: %w", err)
	}

	if len(records) == 0 {
		fmt.Println("No specs found in the catalog.")
		return nil
	}

	fmt.Printf("%-4s %-20s %-30s %-10s %-8s %-8s %-10s %s\n",
		"ID", "Name", "Title", "Version", "Active", "Format", "Auth", "Endpoint")
	fmt.Println(strings.Repeat("-", 110))

	for _, rec := range records {
		fmt.Printf("%-4d %-20s %-30s %-10s %-8t %-8s %-10s %s\n",
			rec.ID,
			truncate(rec.Name, 18),
			truncate(strVal(rec.Title), 28),
			truncate(strVal(rec.Version), 8),
			rec.IsActive,
			strVal(rec.FileFormat),
			strVal(rec.AuthType),
			rec.EndpointPath)
	}
	return nil
}

func handleImport(catalog *store.Store, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: spec-manager import <file-or-url> <name> [endpoint-path]")
	}
	locator, name := args[0], args[1]
	endpoint := "/" + source.EndpointName(locator)
	if len(args) > 2 {
		endpoint = args[2]
	}

	fetcher := source.NewFetcher()
	raw, hint, err := fetcher.Fetch(context.Background(), locator)
	if err != nil {
		return fmt.Errorf("failed to fetch spec: %w", err)
	}

	// Reject specs the server would refuse to mount later.
	doc, err := spec.Normalize(raw, hint)
	if err != nil {
		return fmt.Errorf("spec failed validation: %w", err)
	}

	rec := store.NewSpecRecord(name, string(raw), endpoint)
	if doc.Title != "" {
		rec.Title = &doc.Title
	}
	if doc.Version != "" {
		rec.Version = &doc.Version
	}
	if hint != spec.FormatAuto {
		rec.FileFormat = &hint
	}
	created, err := catalog.Create(rec)
	if err != nil {
		return fmt.Errorf("failed to import spec: %w", err)
	}

	fmt.Printf("Imported spec '%s' (ID %d, %d operations) at endpoint '%s'\n",
		name, created.ID, len(doc.Operations), endpoint)
	return nil
}

func handleSetActive(catalog *store.Store, args []string, active bool) error {
	id, err := parseID(args)
	if err != nil {
		return err
	}
	if err := catalog.SetActive(id, active); err != nil {
		return err
	}
	verb := "activated"
	if !active {
		verb = "deactivated"
	}
	fmt.Printf("Successfully %s spec with ID %d\n", verb, id)
	return nil
}

func handleDelete(catalog *store.Store, args []string) error {
	id, err := parseID(args)
	if err != nil {
		return err
	}
	if err := catalog.Delete(id); err != nil {
		return err
	}
	fmt.Printf("Successfully deleted spec with ID %d\n", id)
	return nil
}

func handleSetCredential(catalog *store.Store, args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("usage: spec-manager set-credential <id> <type> <value>\n" +
			"       types: basic (user:pass), bearer, api_key")
	}
	id, err := parseID(args)
	if err != nil {
		return err
	}

	authType := args[1]
	switch spec.SchemeType(authType) {
	case spec.SchemeBasic, spec.SchemeBearer, spec.SchemeAPIKey:
	default:
		return fmt.Errorf("unsupported credential type %q", authType)
	}

	value := args[2]
	var credential *string
	if value != "" {
		credential = &value
	}
	if err := catalog.SetCredential(id, &authType, credential); err != nil {
		return err
	}

	if credential == nil {
		fmt.Printf("Cleared credential for spec with ID %d\n", id)
	} else {
		fmt.Printf("Stored %s credential for spec with ID %d\n", authType, id)
	}
	return nil
}

func runShell(catalog *store.Store) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "spec-manager> ",
		HistoryFile:     os.TempDir() + "/spec-manager-history",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete: readline.NewPrefixCompleter(
			readline.PcItem("list"),
			readline.PcItem("active"),
			readline.PcItem("import"),
			readline.PcItem("activate"),
			readline.PcItem("deactivate"),
			readline.PcItem("delete"),
			readline.PcItem("set-credential"),
			readline.PcItem("help"),
			readline.PcItem("exit"),
		),
	})
	if err != nil {
		return fmt.Errorf("failed to start shell: %w", err)
	}
	defer rl.Close()

	fmt.Println("Spec catalog shell. Type 'help' for commands, 'exit' to quit.")
	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "exit", "quit":
			return nil
		case "shell":
			fmt.Println("Already in a shell.")
			continue
		}
		if err := run(catalog, fields[0], fields[1:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}
}

func parseID(args []string) (int, error) {
	if len(args) < 1 {
		return 0, fmt.Errorf("missing spec ID")
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("invalid ID %q", args[0])
	}
	return id, nil
}

func strVal(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
