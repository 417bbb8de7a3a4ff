package aggregate_test

import (
	"testing"

	"github.com/okian/offerlens/internal/domain/aggregate"
	"github.com/okian/offerlens/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestAggregate(t *testing.T) {
	bogo := model.Offer{ID: "bogo", Type: model.OfferBOGO, Difficulty: 10, Reward: 10, Channels: model.Channels{Social: true}}
	info := model.Offer{ID: "info", Type: model.OfferInformational, Difficulty: 0}
	ghost := model.Offer{ID: "ghost"}

	Convey("Given attribution output for two customers", t, func() {
		res := model.AttributionResult{
			ReceivedResponses: []model.ReceivedResponse{
				{Received: model.ReceivedEvent{CustomerID: "b", OfferID: "bogo", Offer: bogo}, IsResponse: true, Response: &model.Response{Amount: 12}},
				{Received: model.ReceivedEvent{CustomerID: "b", OfferID: "info", Offer: info}},
				{Received: model.ReceivedEvent{CustomerID: "b", OfferID: "ghost", Offer: ghost}},
			},
			TransactionResponses: []model.TransactionAttribution{
				{Transaction: model.TransactionEvent{CustomerID: "b", Amount: 12}, IsOffer: true},
				{Transaction: model.TransactionEvent{CustomerID: "b", Amount: 4}},
				{Transaction: model.TransactionEvent{CustomerID: "a", Amount: 3}},
			},
		}
		customers := map[string]model.Customer{"b": {ID: "b", Gender: "F"}}

		rows := aggregate.Aggregate(res, customers)

		Convey("Then one row per transacting customer is emitted in id order", func() {
			So(len(rows), ShouldEqual, 2)
			So(rows[0].CustomerID, ShouldEqual, "a")
			So(rows[1].CustomerID, ShouldEqual, "b")
		})

		Convey("Then received aggregates count every receipt", func() {
			b := rows[1]
			So(b.Received, ShouldEqual, 3)
			So(b.ReceivedByType[model.OfferBOGO], ShouldEqual, 1)
			So(b.ReceivedByType[model.OfferInformational], ShouldEqual, 1)
			So(b.ReceivedSocial, ShouldEqual, 1)
			So(b.ReceivedDifficulty.Count, ShouldEqual, 2)
			So(b.ReceivedDifficulty.Max, ShouldEqual, 10)
		})

		Convey("Then responded aggregates cover responses only", func() {
			b := rows[1]
			So(b.Responded, ShouldEqual, 1)
			So(b.RespondedByType[model.OfferBOGO], ShouldEqual, 1)
			So(b.RespondedSocial, ShouldEqual, 1)
			So(b.RespondedAmount.Sum, ShouldEqual, 12)
		})

		Convey("Then transaction aggregates include unattributed purchases", func() {
			b := rows[1]
			So(b.Transactions, ShouldEqual, 2)
			So(b.OfferTransactions, ShouldEqual, 1)
			So(b.TransactionAmount.Sum, ShouldEqual, 16)
			So(b.Customer, ShouldNotBeNil)
			So(b.Customer.Gender, ShouldEqual, "F")
		})

		Convey("Then a customer without receipts gets zero counters and empty stats", func() {
			a := rows[0]
			So(a.Received, ShouldEqual, 0)
			So(a.Responded, ShouldEqual, 0)
			So(a.ReceivedDifficulty.Empty(), ShouldBeTrue)
			So(a.RespondedAmount.Empty(), ShouldBeTrue)
			So(a.Customer, ShouldBeNil)
			So(a.Transactions, ShouldEqual, 1)
		})
	})
}
