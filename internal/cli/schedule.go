package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/iliyamo/class-booking/internal/schedule"
)

func init() {
	rootCmd.AddCommand(previewCmd)

	previewCmd.Flags().String("from", "", "First day, YYYY-MM-DD (default today)")
	previewCmd.Flags().String("to", "", "Last day, YYYY-MM-DD (default from + 6 days)")
	previewCmd.Flags().String("tz", "UTC", "IANA zone the schedule is expanded in")
	previewCmd.Flags().Int("capacity", 1, "Capacity shown for each session")
}

var previewCmd = &cobra.Command{
	Use:   "preview-schedule SCHEDULE_JSON",
	Short: "Print the sessions a schedule produces",
	Long: `Parse a class schedule such as '{"mon-fri":"07:00,18:30","sat":"10:00"}'
and print every session it yields in a date range. Entries that cannot be
parsed are listed as warnings, the way the API reports them.`,
	Args: cobra.ExactArgs(1),
	RunE: runPreview,
}

func runPreview(cmd *cobra.Command, args []string) error {
	tz, _ := cmd.Flags().GetString("tz")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return fmt.Errorf("tz: %w", err)
	}
	fromS, _ := cmd.Flags().GetString("from")
	toS, _ := cmd.Flags().GetString("to")
	capacity, _ := cmd.Flags().GetInt("capacity")

	from := schedule.DayStart(time.Now().In(loc))
	if fromS != "" {
		if from, err = time.ParseInLocation("2006-01-02", fromS, loc); err != nil {
			return fmt.Errorf("from: %w", err)
		}
	}
	to := from.AddDate(0, 0, 6)
	if toS != "" {
		if to, err = time.ParseInLocation("2006-01-02", toS, loc); err != nil {
			return fmt.Errorf("to: %w", err)
		}
	}
	if to.Before(from) {
		return errors.New("to is before from")
	}

	def := schedule.ParseJSON([]byte(args[0]))
	if def == nil {
		return errors.New("schedule defines no valid sessions")
	}
	out := cmd.OutOrStdout()
	for _, s := range def.Skipped {
		fmt.Fprintf(out, "warning: %s\n", s)
	}
	list := schedule.GenerateRange(from, to, def, schedule.ClassRef{Capacity: capacity})
	for _, s := range list {
		fmt.Fprintf(out, "%s  %s-%s  capacity=%d\n",
			s.StartAt.Format("Mon 2006-01-02"), s.StartAt.Format("15:04"), s.EndAt.Format("15:04"), s.Capacity)
	}
	fmt.Fprintf(out, "%d sessions\n", len(list))
	return nil
}
