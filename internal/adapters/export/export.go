// Package export writes pipeline outputs to an output directory: the two
// attribution tables and the feature table as CSV, the cohort report as YAML.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/okian/offerlens/internal/domain/cohort"
	"github.com/okian/offerlens/internal/domain/features"
	"github.com/okian/offerlens/internal/domain/model"
	"github.com/okian/offerlens/pkg/logger"
)

// Output file names.
const (
	ReceivedResponseFile    = "received_response.csv"
	TransactionResponseFile = "transaction_response.csv"
	CustomerFeaturesFile    = "customer_features.csv"
	CohortReportFile        = "cohort_report.yaml"
)

// Option applies a configuration option to the Exporter.
type Option func(*Exporter)

// WithLogger sets a custom logger for the exporter.
func WithLogger(l logger.Logger) Option {
	return func(e *Exporter) {
		if l != nil {
			e.logger = l
		}
	}
}

// Exporter writes run outputs under dir.
type Exporter struct {
	dir    string
	logger logger.Logger
}

// New creates an Exporter writing into dir.
func New(dir string, opts ...Option) *Exporter {
	e := &Exporter{dir: dir}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logger.Get().Named("export")
	}
	return e
}

// Tables writes the received×response, transaction×response and feature
// tables.
func (e *Exporter) Tables(ctx context.Context, res model.AttributionResult, feats []model.CustomerFeatures) error {
	if err := os.MkdirAll(e.dir, 0o750); err != nil {
		return fmt.Errorf("%w: create %s: %v", ErrExport, e.dir, err)
	}
	if err := e.writeFile(ReceivedResponseFile, func(w io.Writer) error { return WriteReceivedResponses(w, res.ReceivedResponses) }); err != nil {
		return err
	}
	if err := e.writeFile(TransactionResponseFile, func(w io.Writer) error { return WriteTransactionResponses(w, res.TransactionResponses) }); err != nil {
		return err
	}
	if err := e.writeFile(CustomerFeaturesFile, func(w io.Writer) error { return WriteFeatures(w, feats) }); err != nil {
		return err
	}
	e.logger.Info(ctx, "tables exported",
		logger.String("dir", e.dir),
		logger.Int("received_rows", len(res.ReceivedResponses)),
		logger.Int("transaction_rows", len(res.TransactionResponses)),
		logger.Int("feature_rows", len(feats)),
	)
	return nil
}

// CohortReport writes rep as YAML.
func (e *Exporter) CohortReport(ctx context.Context, rep cohort.Report) error {
	if err := os.MkdirAll(e.dir, 0o750); err != nil {
		return fmt.Errorf("%w: create %s: %v", ErrExport, e.dir, err)
	}
	if err := e.writeFile(CohortReportFile, func(w io.Writer) error { return WriteCohortReport(w, rep) }); err != nil {
		return err
	}
	e.logger.Info(ctx, "cohort report exported", logger.Int("groups", len(rep.Groups)))
	return nil
}

func (e *Exporter) writeFile(name string, write func(io.Writer) error) error {
	path := filepath.Join(e.dir, name)
	tmp := path + ".tmp"
	f, err := os.Create(tmp) //nolint:gosec // path under configured output dir
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrExport, name, err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: %s: %v", ErrExport, name, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: %s: %v", ErrExport, name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrExport, name, err)
	}
	return nil
}

func itoa(n int) string { return strconv.Itoa(n) }

func ftoa(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func btoa(b bool) string { return strconv.FormatBool(b) }

func opt(v float64, ok bool) string {
	if !ok {
		return ""
	}
	return ftoa(v)
}

// WriteReceivedResponses writes one CSV row per receipt.
func WriteReceivedResponses(w io.Writer, rows []model.ReceivedResponse) error {
	cw := csv.NewWriter(w)
	header := []string{
		"customer_id", "offer_id", "offer_type", "received_time",
		"difficulty", "reward", "duration_hours", "email", "mobile", "web", "social",
		"is_response", "viewed_time", "transaction_time", "amount",
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range rows {
		o := r.Received.Offer
		rec := []string{
			r.Received.CustomerID, r.Received.OfferID, string(o.Type), itoa(r.Received.Time),
			ftoa(o.Difficulty), ftoa(o.Reward), itoa(o.DurationHours),
			btoa(o.Channels.Email), btoa(o.Channels.Mobile), btoa(o.Channels.Web), btoa(o.Channels.Social),
			btoa(r.IsResponse), "", "", "",
		}
		if r.Response != nil {
			rec[12] = itoa(r.Response.ViewedTime)
			rec[13] = itoa(r.Response.TransactionTime)
			rec[14] = ftoa(r.Response.Amount)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTransactionResponses writes one CSV row per transaction with its
// winning offer, if any.
func WriteTransactionResponses(w io.Writer, rows []model.TransactionAttribution) error {
	cw := csv.NewWriter(w)
	header := []string{
		"customer_id", "transaction_time", "amount", "is_offer", "candidates",
		"offer_id", "offer_type", "reward", "received_time", "viewed_time",
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.Transaction.CustomerID, itoa(r.Transaction.Time), ftoa(r.Transaction.Amount),
			btoa(r.IsOffer), itoa(r.Candidates), "", "", "", "", "",
		}
		if win := r.Winner; win != nil {
			rec[5] = win.Received.OfferID
			rec[6] = string(win.Received.Offer.Type)
			rec[7] = ftoa(win.Received.Offer.Reward)
			rec[8] = itoa(win.Received.Time)
			rec[9] = itoa(win.ViewedTime)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFeatures writes the feature table: profile columns followed by every
// registered feature column. Null cells are empty.
func WriteFeatures(w io.Writer, rows []model.CustomerFeatures) error {
	cw := csv.NewWriter(w)
	header := []string{"customer_id", "gender", "age_range", "income_range", "member_year", "member_year_range"}
	for _, c := range features.Columns {
		header = append(header, c.Name)
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for i := range rows {
		f := &rows[i]
		rec := make([]string, 0, len(header))
		rec = append(rec, f.CustomerID)
		if c := f.Customer; c != nil {
			year := ""
			if c.MemberYear > 0 {
				year = itoa(c.MemberYear)
			}
			rec = append(rec, c.Gender, c.AgeRange, c.IncomeRange, year, c.MemberYearRange)
		} else {
			rec = append(rec, "", "", "", "", "")
		}
		for _, c := range features.Columns {
			rec = append(rec, opt(c.Value(f)))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCohortReport encodes rep as YAML.
func WriteCohortReport(w io.Writer, rep cohort.Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(rep); err != nil {
		return err
	}
	return enc.Close()
}
