// cmd/tools/rules-registry/main.go
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"citizenship-adjudicator/internal/adjudication/decision"
	"citizenship-adjudicator/pkg/registry"
)

var rulesPath string

func main() {
	addCmd := flag.NewFlagSet("add", flag.ExitOnError)
	updateCmd := flag.NewFlagSet("update", flag.ExitOnError)
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)
	listCmd := flag.NewFlagSet("list", flag.ExitOnError)
	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)

	for _, fs := range []*flag.FlagSet{addCmd, updateCmd, validateCmd, listCmd, exportCmd} {
		fs.StringVar(&rulesPath, "path", "configs/rules.json", "Path to the rule table")
	}

	// Add command flags
	idAdd := addCmd.String("id", "", "Rule ID (e.g., no-show-collection)")
	description := addCmd.String("description", "", "Description")
	priority := addCmd.Int("priority", 100, "Priority, lower runs first")
	effect := addCmd.String("effect", "", "Effect (manual_review, send_to_committee, automatic_denial, deny, force_unsatisfied, flag)")
	target := addCmd.String("target", "", "Requirement code for force_unsatisfied, flag name for flag")
	patterns := addCmd.String("patterns", "", "Comma-separated opinion phrases")
	caseTypes := addCmd.String("caseTypes", "", "Comma-separated case types (empty applies to all)")

	// Update command flags
	idUpdate := updateCmd.String("id", "", "Rule ID to update")
	field := updateCmd.String("field", "", "Field to update (priority, effect, target, patterns, caseTypes, description, disabled)")
	value := updateCmd.String("value", "", "New value for the field")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "add":
		addCmd.Parse(os.Args[2:])
		if *idAdd == "" || *effect == "" || *patterns == "" {
			fmt.Println("Error: id, effect, and patterns are required for add.")
			addCmd.Usage()
			os.Exit(1)
		}
		rule := registry.Rule{
			ID:          *idAdd,
			Description: *description,
			Priority:    *priority,
			Effect:      *effect,
			Target:      *target,
			Patterns:    splitList(*patterns),
			CaseTypes:   splitList(*caseTypes),
		}
		if err := addRule(rule); err != nil {
			fmt.Printf("Error adding rule: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Added rule: %s\n", *idAdd)

	case "update":
		updateCmd.Parse(os.Args[2:])
		if *idUpdate == "" || *field == "" {
			fmt.Println("Error: id and field are required for update.")
			updateCmd.Usage()
			os.Exit(1)
		}
		if err := updateRule(*idUpdate, *field, *value); err != nil {
			fmt.Printf("Error updating rule: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Updated rule %s, field %s to %q\n", *idUpdate, *field, *value)

	case "validate":
		validateCmd.Parse(os.Args[2:])
		n, err := validateRules()
		if err != nil {
			fmt.Printf("Rule table validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Rule table validation passed. Found %d rules.\n", n)

	case "list":
		listCmd.Parse(os.Args[2:])
		if err := listRules(); err != nil {
			fmt.Printf("Error listing rules: %v\n", err)
			os.Exit(1)
		}

	case "export":
		exportCmd.Parse(os.Args[2:])
		if err := exportDefaults(); err != nil {
			fmt.Printf("Error exporting built-in rules: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote built-in rule table to %s\n", rulesPath)

	case "help":
		fallthrough
	default:
		help()
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func loadOrNew() (*registry.RuleTable, error) {
	table, err := registry.LoadRuleTable(rulesPath)
	if err == nil {
		return table, nil
	}
	if os.IsNotExist(err) {
		return &registry.RuleTable{Version: "1.0.0", Rules: []registry.Rule{}}, nil
	}
	return nil, fmt.Errorf("failed to load rule table: %w", err)
}

func addRule(rule registry.Rule) error {
	table, err := loadOrNew()
	if err != nil {
		return err
	}
	if _, exists := table.Find(rule.ID); exists {
		return fmt.Errorf("rule with ID %s already exists", rule.ID)
	}
	table.Rules = append(table.Rules, rule)
	return save(table)
}

func updateRule(id, field, value string) error {
	table, err := registry.LoadRuleTable(rulesPath)
	if err != nil {
		return fmt.Errorf("failed to load rule table: %w", err)
	}
	rule, ok := table.Find(id)
	if !ok {
		return fmt.Errorf("rule with ID %s not found", id)
	}

	switch field {
	case "priority":
		p, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid priority value: %w", err)
		}
		rule.Priority = p
	case "effect":
		rule.Effect = value
	case "target":
		rule.Target = value
	case "patterns":
		rule.Patterns = splitList(value)
	case "caseTypes":
		rule.CaseTypes = splitList(value)
	case "description":
		rule.Description = value
	case "disabled":
		d, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid disabled value: %w", err)
		}
		rule.Disabled = d
	default:
		return fmt.Errorf("unknown field: %s", field)
	}
	return save(table)
}

// save compiles the table before writing so a table the adjudicator would
// reject never reaches disk.
func save(table *registry.RuleTable) error {
	if _, err := decision.Compile(table); err != nil {
		return err
	}
	table.LastUpdated = time.Now().Format(time.RFC3339)

	if err := os.MkdirAll(filepath.Dir(rulesPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return registry.SaveRuleTable(rulesPath, table)
}

func validateRules() (int, error) {
	table, err := registry.LoadRuleTable(rulesPath)
	if err != nil {
		return 0, fmt.Errorf("failed to load rule table: %w", err)
	}
	if len(table.Rules) == 0 {
		return 0, fmt.Errorf("rule table contains no rules")
	}
	if _, err := decision.Compile(table); err != nil {
		return 0, err
	}
	return len(table.Rules), nil
}

func listRules() error {
	table, err := registry.LoadRuleTable(rulesPath)
	if err != nil {
		return fmt.Errorf("failed to load rule table: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PRIORITY\tID\tEFFECT\tTARGET\tCASE TYPES\tPATTERNS")
	for _, r := range table.Rules {
		id := r.ID
		if r.Disabled {
			id += " (disabled)"
		}
		types := strings.Join(r.CaseTypes, ",")
		if types == "" {
			types = "all"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%d\n", r.Priority, id, r.Effect, r.Target, types, len(r.Patterns))
	}
	return w.Flush()
}

func exportDefaults() error {
	if _, err := os.Stat(rulesPath); err == nil {
		return fmt.Errorf("%s already exists", rulesPath)
	}
	return save(decision.DefaultRuleTable())
}

const usage = `Usage: rules-registry <command> [flags]

Commands:
  add       Add a narrative rule to the rule table
  update    Update an existing rule's field
  validate  Validate and compile the rule table
  list      List the rules in priority order
  export    Write the built-in rule table as a starting point
  help      Show this help message

Examples:
  rules-registry add -id no-show-collection -effect automatic_denial -patterns "não compareceu à coleta"
  rules-registry update -id no-show-collection -field priority -value 5
  rules-registry validate -path configs/rules.json

Use 'rules-registry <command> -h' for more information about a command.
`

func help() {
	fmt.Print(usage)
}
