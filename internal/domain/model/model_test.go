package model_test

import (
	"testing"

	"github.com/goccy/go-json"

	"github.com/okian/offerlens/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestOfferType(t *testing.T) {
	Convey("Given offer types", t, func() {
		Convey("Then bogo and discount are progress based", func() {
			So(model.OfferBOGO.ProgressBased(), ShouldBeTrue)
			So(model.OfferDiscount.ProgressBased(), ShouldBeTrue)
			So(model.OfferInformational.ProgressBased(), ShouldBeFalse)
		})

		Convey("Then only catalog types are known", func() {
			So(model.OfferInformational.Known(), ShouldBeTrue)
			So(model.OfferType("").Known(), ShouldBeFalse)
			So(model.OfferType("social").Known(), ShouldBeFalse)
		})
	})
}

func TestStat(t *testing.T) {
	Convey("Given an empty stat", t, func() {
		var s model.Stat

		Convey("Then every aggregate reports absent", func() {
			So(s.Empty(), ShouldBeTrue)
			_, ok := s.Mean()
			So(ok, ShouldBeFalse)
			_, ok = s.Minimum()
			So(ok, ShouldBeFalse)
			_, ok = s.Total()
			So(ok, ShouldBeFalse)
		})

		Convey("When values are added", func() {
			for _, v := range []float64{7, 2, 9} {
				s.Add(v)
			}

			Convey("Then count, sum, extrema and mean are tracked", func() {
				So(s.Count, ShouldEqual, 3)
				So(s.Sum, ShouldEqual, 18)
				So(s.Min, ShouldEqual, 2)
				So(s.Max, ShouldEqual, 9)
				mean, ok := s.Mean()
				So(ok, ShouldBeTrue)
				So(mean, ShouldEqual, 6)
			})
		})
	})
}

func TestPartitionByCustomer(t *testing.T) {
	Convey("Given tables spanning two customers", t, func() {
		tables := model.Tables{
			Received: []model.ReceivedEvent{
				{Seq: 0, CustomerID: "b", Time: 0, OfferID: "o1"},
				{Seq: 1, CustomerID: "a", Time: 0, OfferID: "o1"},
				{Seq: 2, CustomerID: "b", Time: 24, OfferID: "o2"},
			},
			Viewed:       []model.ViewedEvent{{CustomerID: "a", Time: 5, OfferID: "o1"}},
			Transactions: []model.TransactionEvent{{CustomerID: "b", Time: 30, Amount: 10}, {CustomerID: "a", Time: 6, Amount: 3}},
		}

		parts := model.PartitionByCustomer(tables)

		Convey("Then partitions are ordered by customer and keep row order", func() {
			So(len(parts), ShouldEqual, 2)
			So(parts[0].CustomerID, ShouldEqual, "a")
			So(parts[1].CustomerID, ShouldEqual, "b")
			So(len(parts[0].Viewed), ShouldEqual, 1)
			So(len(parts[1].Received), ShouldEqual, 2)
			So(parts[1].Received[0].Seq, ShouldEqual, 0)
			So(parts[1].Received[1].Seq, ShouldEqual, 2)
			So(parts[1].Transactions[0].Amount, ShouldEqual, 10)
		})
	})
}

func TestRawOfferDecode(t *testing.T) {
	Convey("Given an offer row keyed with duration_days and offer_id", t, func() {
		var o model.RawOffer
		err := json.Unmarshal([]byte(`{"offer_id":"o1","offer_type":"bogo","difficulty":5,"reward":5,"duration_days":7,"channels":["web"]}`), &o)

		Convey("Then the alternate keys fill the raw fields", func() {
			So(err, ShouldBeNil)
			So(o.ID, ShouldEqual, "o1")
			So(o.Duration, ShouldEqual, 7)
			So(o.Reward, ShouldEqual, 5)
			So(o.Channels, ShouldResemble, []string{"web"})
		})
	})

	Convey("Given an offer row with both spellings", t, func() {
		var o model.RawOffer
		err := json.Unmarshal([]byte(`{"id":"o1","duration":3,"duration_days":9}`), &o)

		Convey("Then the dataset spelling wins", func() {
			So(err, ShouldBeNil)
			So(o.Duration, ShouldEqual, 3)
		})
	})
}

func TestRawEventDecode(t *testing.T) {
	Convey("Given an event row keyed with the long names", t, func() {
		var e model.RawEvent
		err := json.Unmarshal([]byte(`{"person_id":"c1","event_kind":"transaction","time_hours":18,"payload_map":{"amount":2.5}}`), &e)

		Convey("Then it decodes like the dataset spelling", func() {
			So(err, ShouldBeNil)
			So(e.Person, ShouldEqual, "c1")
			So(e.Event, ShouldEqual, model.EventTransaction)
			So(e.Time, ShouldEqual, 18)
			So(e.Value["amount"], ShouldEqual, 2.5)
		})
	})

	Convey("Given an event row keyed with customer_id", t, func() {
		var e model.RawEvent
		err := json.Unmarshal([]byte(`{"customer_id":"c2","event":"offer viewed","time":4,"value":{"offer id":"o1"}}`), &e)

		Convey("Then the customer id becomes the person", func() {
			So(err, ShouldBeNil)
			So(e.Person, ShouldEqual, "c2")
			So(e.Time, ShouldEqual, 4)
			So(e.Value["offer id"], ShouldEqual, "o1")
		})
	})
}
