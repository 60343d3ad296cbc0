package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"flight_search/internal/kafka"
	"flight_search/internal/models"
	"flight_search/internal/service"
	"flight_search/internal/timetable"
)

const noResults = "No flight combinations match the specified parameters!"

type searchFlags struct {
	bags              int
	isReturn          bool
	daysOfStay        int
	maxLayoverHours   int
	maxTravelHours    int
	maxNrChanges      int
	dayOfDeparture    string
	isMulticity       bool
	middleDestination string
	verbose           bool
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var f searchFlags

	rootCmd := &cobra.Command{
		Use:   "flightsearch <dataset> <origin> <destination>",
		Short: "Find flight itineraries in a CSV timetable",
		Long: "Lists every combination of flights from origin to destination that satisfies\n" +
			"the layover, stay, travel time and bag constraints, cheapest first.",
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, stdout, stderr, args, &f)
		},
	}

	flags := rootCmd.Flags()
	flags.IntVar(&f.bags, "bags", 0, "Number of requested bags")
	flags.BoolVar(&f.isReturn, "return", false, "Is it a return flight?")
	flags.IntVar(&f.daysOfStay, "days_of_stay", 0, "In case of return trip, minimum days of stay at destination")
	flags.IntVar(&f.maxLayoverHours, "max_layover_hours", models.DefaultMaxLayoverHours, "Maximum layover hours between flights")
	flags.IntVar(&f.maxTravelHours, "max_travel_hours", 0, "Maximum travel hours in a route, 0 for no limit")
	flags.IntVar(&f.maxNrChanges, "max_nr_changes", models.DefaultMaxNrChanges, "Maximum number of changes in a route, -1 for no limit")
	flags.StringVar(&f.dayOfDeparture, "day_of_departure", "", "Day of departure in format YYYY-MM-DD")
	flags.BoolVar(&f.isMulticity, "multicity", false, "Is it a multicity flight?")
	flags.StringVar(&f.middleDestination, "middle_destination", "", "Middle destination airport code of a multicity trip")
	rootCmd.PersistentFlags().BoolVarP(&f.verbose, "verbose", "v", false, "Log search statistics to stderr")

	rootCmd.AddCommand(newPublishCmd(stdout, stderr, &f.verbose))
	return rootCmd
}

func runSearch(cmd *cobra.Command, stdout, stderr io.Writer, args []string, f *searchFlags) error {
	flights, err := timetable.ReadFile(args[0])
	if err != nil {
		return err
	}

	req := &models.SearchRequest{
		Origin:            args[1],
		Destination:       args[2],
		MiddleDestination: f.middleDestination,
		Bags:              f.bags,
		Return:            f.isReturn,
		Multicity:         f.isMulticity,
		DaysOfStay:        f.daysOfStay,
		MaxLayoverHours:   &f.maxLayoverHours,
		MaxTravelHours:    f.maxTravelHours,
		MaxNrChanges:      &f.maxNrChanges,
		DayOfDeparture:    f.dayOfDeparture,
	}

	svc := service.NewSearchService(service.StaticTimetable(flights), nil, 0, newLogger(stderr, f.verbose))
	resp, err := svc.Search(commandContext(cmd), req)
	if err != nil {
		return err
	}

	if resp.Count == 0 {
		fmt.Fprintln(stdout, noResults)
		return nil
	}

	b, err := json.MarshalIndent(resp.Itineraries, "", "    ")
	if err != nil {
		return fmt.Errorf("encode itineraries: %w", err)
	}

	fmt.Fprintln(stdout, header(req))
	fmt.Fprintln(stdout, string(b))
	fmt.Fprintln(stdout, resp.Count)
	return nil
}

func header(req *models.SearchRequest) string {
	switch {
	case req.Return:
		return fmt.Sprintf("path from src %s to dst %s to src %s are", req.Origin, req.Destination, req.Origin)
	case req.Multicity:
		return fmt.Sprintf("path from src %s to mid_dst %s to dst %s are", req.Origin, req.MiddleDestination, req.Destination)
	default:
		return fmt.Sprintf("path from src %s to dst %s are", req.Origin, req.Destination)
	}
}

// flightPublisher is satisfied by *kafka.Producer.
type flightPublisher interface {
	SendFlight(importID int, f *models.Flight) error
	Close() error
}

var newPublisher = func(brokers []string, topic string) (flightPublisher, error) {
	return kafka.NewSyncProducer(brokers, topic)
}

func newPublishCmd(stdout, stderr io.Writer, verbose *bool) *cobra.Command {
	var (
		brokers string
		topic   string
	)

	cmd := &cobra.Command{
		Use:           "publish <dataset>",
		Short:         "Send every flight of a CSV timetable to the ingestion topic",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := publish(commandContext(cmd), args[0], splitBrokers(brokers), topic, newLogger(stderr, *verbose))
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "published %d flights to %s\n", n, topic)
			return nil
		},
	}

	cmd.Flags().StringVar(&brokers, "brokers", "localhost:9092", "Comma separated Kafka brokers")
	cmd.Flags().StringVar(&topic, "topic", service.DefaultTopic, "Kafka topic")
	return cmd
}

func publish(ctx context.Context, path string, brokers []string, topic string, logger *slog.Logger) (int, error) {
	flights, err := timetable.ReadFile(path)
	if err != nil {
		return 0, err
	}

	p, err := newPublisher(brokers, topic)
	if err != nil {
		return 0, err
	}
	defer p.Close()

	for i := range flights {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if err := p.SendFlight(0, &flights[i]); err != nil {
			return i, fmt.Errorf("publish %s: %w", flights[i].FlightNo, err)
		}
		logger.Debug("flight published", "flight_no", flights[i].FlightNo)
	}
	return len(flights), nil
}

func splitBrokers(s string) []string {
	var out []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// newLogger is silent unless verbose; errors reach the user through main.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	if !verbose {
		w = io.Discard
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
