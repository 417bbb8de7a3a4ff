package export_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/okian/offerlens/internal/adapters/export"
	"github.com/okian/offerlens/internal/domain/cohort"
	"github.com/okian/offerlens/internal/domain/features"
	"github.com/okian/offerlens/internal/domain/model"
	"github.com/okian/offerlens/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
}

func readCSV(data []byte) [][]string {
	recs, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		panic(err)
	}
	return recs
}

func sampleResult() model.AttributionResult {
	offer := model.Offer{ID: "o1", Type: model.OfferBOGO, Difficulty: 10, Reward: 5, DurationHours: 72, Channels: model.Channels{Email: true}}
	rv := model.ReceivedView{Received: model.ReceivedEvent{CustomerID: "c1", OfferID: "o1", Offer: offer}, ViewedTime: 10, ValidView: true}
	win := model.Attribution{ReceivedView: rv, TransactionTime: 20, Amount: 15, ValidCompletion: true}
	return model.AttributionResult{
		ReceivedResponses: []model.ReceivedResponse{
			{Received: rv.Received, IsResponse: true, Response: &model.Response{CustomerID: "c1", OfferID: "o1", ViewedTime: 10, TransactionTime: 20, Amount: 15}},
			{Received: model.ReceivedEvent{CustomerID: "c1", OfferID: "o1", Time: 200, Offer: offer}},
		},
		TransactionResponses: []model.TransactionAttribution{
			{Transaction: model.TransactionEvent{CustomerID: "c1", Time: 20, Amount: 15}, IsOffer: true, Candidates: 1, Winner: &win},
			{Transaction: model.TransactionEvent{CustomerID: "c1", Time: 300, Amount: 2.5}},
		},
	}
}

func TestWriters(t *testing.T) {
	Convey("Given attribution output", t, func() {
		res := sampleResult()

		Convey("When the received table is written", func() {
			var buf bytes.Buffer
			So(export.WriteReceivedResponses(&buf, res.ReceivedResponses), ShouldBeNil)
			recs := readCSV(buf.Bytes())

			Convey("Then responses fill the outcome columns and misses leave them empty", func() {
				So(len(recs), ShouldEqual, 3)
				So(recs[0][0], ShouldEqual, "customer_id")
				So(recs[1][11], ShouldEqual, "true")
				So(recs[1][14], ShouldEqual, "15")
				So(recs[2][11], ShouldEqual, "false")
				So(recs[2][14], ShouldEqual, "")
			})
		})

		Convey("When the transaction table is written", func() {
			var buf bytes.Buffer
			So(export.WriteTransactionResponses(&buf, res.TransactionResponses), ShouldBeNil)
			recs := readCSV(buf.Bytes())

			Convey("Then the winner columns are filled only for offer transactions", func() {
				So(len(recs), ShouldEqual, 3)
				So(recs[1][3], ShouldEqual, "true")
				So(recs[1][5], ShouldEqual, "o1")
				So(recs[1][7], ShouldEqual, "5")
				So(recs[2][2], ShouldEqual, "2.5")
				So(recs[2][5], ShouldEqual, "")
			})
		})

		Convey("When the feature table is written", func() {
			stats := model.CustomerStats{CustomerID: "c1", Customer: &model.Customer{ID: "c1", Gender: "F", MemberYear: 2017}, Transactions: 2}
			stats.TransactionAmount.Add(4)
			feats := features.Calculate([]model.CustomerStats{stats})
			var buf bytes.Buffer
			So(export.WriteFeatures(&buf, feats), ShouldBeNil)
			recs := readCSV(buf.Bytes())

			Convey("Then every column is present and nulls are empty", func() {
				So(len(recs[0]), ShouldEqual, 6+len(features.Columns))
				So(recs[1][1], ShouldEqual, "F")
				So(recs[1][4], ShouldEqual, "2017")
				col := map[string]string{}
				for i, name := range recs[0] {
					col[name] = recs[1][i]
				}
				So(col["transaction_count"], ShouldEqual, "2")
				So(col["offer_count_ratio"], ShouldEqual, "0")
				So(col["bogo_offer_ratio"], ShouldEqual, "")
			})
		})
	})
}

func TestExporter(t *testing.T) {
	ctx := context.Background()

	Convey("Given an exporter on a temp dir", t, func() {
		dir := filepath.Join(t.TempDir(), "out")
		e := export.New(dir)

		Convey("When tables and a cohort report are exported", func() {
			So(e.Tables(ctx, sampleResult(), nil), ShouldBeNil)
			rep := cohort.Report{
				Query:  cohort.Query{Keys: []string{"gender"}, Metric: "responded_bogo", Condition: "==1", Top: 10},
				Groups: []cohort.Group{{Values: []string{"F"}, Count: 3, TransactionCountMean: 2}},
			}
			So(e.CohortReport(ctx, rep), ShouldBeNil)

			Convey("Then every file exists", func() {
				for _, name := range []string{export.ReceivedResponseFile, export.TransactionResponseFile, export.CustomerFeaturesFile, export.CohortReportFile} {
					_, err := os.Stat(filepath.Join(dir, name))
					So(err, ShouldBeNil)
				}
			})

			Convey("Then the cohort report round-trips through YAML", func() {
				data, err := os.ReadFile(filepath.Join(dir, export.CohortReportFile))
				So(err, ShouldBeNil)
				So(strings.Contains(string(data), "metric: responded_bogo"), ShouldBeTrue)

				var back cohort.Report
				So(yaml.Unmarshal(data, &back), ShouldBeNil)
				So(back.Groups[0].Count, ShouldEqual, 3)
				So(back.Groups[0].AmountMean, ShouldBeNil)
			})
		})
	})
}
