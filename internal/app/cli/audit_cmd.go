package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	auditstore "github.com/dalemusser/cineshelf/internal/app/store/audit"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newAuditCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Read the audit trail",
	}

	var (
		category  string
		eventType string
		actor     string
		group     string
		since     time.Duration
		limit     int64
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List recent audit events, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter := auditstore.QueryFilter{
				Category:  category,
				EventType: eventType,
				Limit:     limit,
			}
			if actor != "" {
				id, err := primitive.ObjectIDFromHex(actor)
				if err != nil {
					return fmt.Errorf("invalid --actor %q", actor)
				}
				filter.ActorID = &id
			}
			if group != "" {
				id, err := primitive.ObjectIDFromHex(group)
				if err != nil {
					return fmt.Errorf("invalid --group %q", group)
				}
				filter.GroupID = &id
			}
			if since > 0 {
				t := time.Now().UTC().Add(-since)
				filter.Since = &t
			}

			events, err := auditstore.New(env.DB).Query(cmd.Context(), filter)
			if err != nil {
				return fmt.Errorf("query audit events: %w", err)
			}
			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), events)
			}

			rows := make([][]string, 0, len(events))
			for _, e := range events {
				rows = append(rows, []string{
					e.Timestamp.Format(time.RFC3339),
					e.Category,
					e.EventType,
					hexOrDash(e.ActorID),
					hexOrDash(e.TargetID),
					outcome(e),
					details(e.Details),
				})
			}
			return printTable(cmd.OutOrStdout(),
				[]string{"TIME", "CATEGORY", "EVENT", "ACTOR", "TARGET", "OUTCOME", "DETAILS"}, rows)
		},
	}
	list.Flags().StringVar(&category, "category", "", "Filter by category (groups, lending, catalog)")
	list.Flags().StringVar(&eventType, "event", "", "Filter by event type")
	list.Flags().StringVar(&actor, "actor", "", "Filter by actor user id")
	list.Flags().StringVar(&group, "group", "", "Filter by group id")
	list.Flags().DurationVar(&since, "since", 0, "Only events newer than this (e.g. 24h)")
	list.Flags().Int64Var(&limit, "limit", 50, "Maximum events to return")

	cmd.AddCommand(list)
	return cmd
}

func hexOrDash(id *primitive.ObjectID) string {
	if id == nil {
		return "-"
	}
	return id.Hex()
}

func outcome(e auditstore.Event) string {
	if e.Success {
		return "ok"
	}
	if e.FailureReason != "" {
		return "failed: " + e.FailureReason
	}
	return "failed"
}

func details(m map[string]string) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+m[k])
	}
	return strings.Join(parts, " ")
}
