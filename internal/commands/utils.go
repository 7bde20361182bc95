package commands

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/beesaferoot/lotassign/assign"
	"github.com/beesaferoot/lotassign/domain"
	"github.com/beesaferoot/lotassign/internal/authz"
	"github.com/beesaferoot/lotassign/internal/config"
	"github.com/beesaferoot/lotassign/internal/store"
	"github.com/beesaferoot/lotassign/schedule"
	"github.com/beesaferoot/lotassign/validate"
)

func getDB() (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	db, err := store.Open(cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}

// app is everything a domain command needs.
type app struct {
	cfg      *config.Config
	store    *store.Store
	perms    *authz.Enforcer
	assigner *assign.Assigner
}

func newApp() (*app, error) {
	cfg, db, err := getDB()
	if err != nil {
		return nil, err
	}

	perms, err := authz.New()
	if err != nil {
		return nil, err
	}
	if err := perms.LoadAssignments(cfg.ActorRoles); err != nil {
		return nil, fmt.Errorf("failed to load ACTOR_ROLES: %w", err)
	}

	s := store.New(db)
	logger := log.New(os.Stderr, "", log.LstdFlags)
	assigner := assign.New(s, s, perms,
		validate.New(cfg.Validation()),
		schedule.New(cfg.Schedule()),
		assign.WithLogger(logger),
	)
	return &app{cfg: cfg, store: s, perms: perms, assigner: assigner}, nil
}

func addActorFlag(cmd *cobra.Command) {
	cmd.Flags().String("actor", os.Getenv("LOTCTL_ACTOR"), "Identity performing the operation (defaults to $LOTCTL_ACTOR)")
}

func actorOf(cmd *cobra.Command) domain.Actor {
	actor, _ := cmd.Flags().GetString("actor")
	return domain.Actor(actor)
}

// readTerms decodes --terms, or the file named by --terms-file.
func readTerms(cmd *cobra.Command) (domain.RawTerms, error) {
	var raw domain.RawTerms
	inline, _ := cmd.Flags().GetString("terms")
	path, _ := cmd.Flags().GetString("terms-file")

	var data []byte
	switch {
	case inline != "" && path != "":
		return raw, fmt.Errorf("use either --terms or --terms-file, not both")
	case inline != "":
		data = []byte(inline)
	case path != "":
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return raw, fmt.Errorf("failed to read terms file: %w", err)
		}
	default:
		return raw, fmt.Errorf("terms are required (--terms or --terms-file)")
	}

	if err := json.Unmarshal(data, &raw); err != nil {
		return raw, fmt.Errorf("failed to parse terms: %w", err)
	}
	return raw, nil
}

func addTermsFlags(cmd *cobra.Command) {
	cmd.Flags().String("terms", "", "Contract terms as JSON")
	cmd.Flags().String("terms-file", "", "Path to a JSON file holding the contract terms")
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// explain expands validation errors into one line per field.
func explain(err error) error {
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		return err
	}
	lines := make([]string, 0, len(ve.Errors)+1)
	lines = append(lines, "validation failed:")
	for _, fe := range ve.Errors {
		lines = append(lines, fmt.Sprintf("  %-20s  %-14s  %s", fe.Field, fe.Code, fe.Message))
	}
	return errors.New(strings.Join(lines, "\n"))
}

func printSchedule(w io.Writer, c *domain.Contract) {
	fmt.Fprintf(w, "%-4s  %-12s  %-10s  %16s  %12s\n", "Seq", "Kind", "Due", "Amount", "Charges")
	for _, o := range c.Schedule {
		fmt.Fprintf(w, "%-4d  %-12s  %-10s  %16s  %12s\n",
			o.Seq, o.Kind, o.DueDate.Format(domain.DateLayout),
			c.Currency.Format(o.Amount), c.Currency.Format(o.Charges))
	}
	fmt.Fprintf(w, "Total: %s\n", c.Currency.Format(c.Schedule.Total()))
}
