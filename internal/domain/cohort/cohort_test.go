package cohort_test

import (
	"errors"
	"testing"

	"github.com/okian/offerlens/internal/domain/cohort"
	"github.com/okian/offerlens/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func row(id, gender, age string, bogo, txs int, amounts ...float64) model.CustomerFeatures {
	f := model.CustomerFeatures{CustomerStats: model.CustomerStats{
		CustomerID:      id,
		Customer:        &model.Customer{ID: id, Gender: gender, AgeRange: age, MemberYear: 2017},
		RespondedByType: map[model.OfferType]int{model.OfferBOGO: bogo},
		Transactions:    txs,
	}}
	for _, a := range amounts {
		f.TransactionAmount.Add(a)
	}
	return f
}

func TestParseCondition(t *testing.T) {
	Convey("Given condition strings", t, func() {
		c, err := cohort.ParseCondition("==1")
		So(err, ShouldBeNil)
		So(c, ShouldResemble, cohort.Condition{Op: "==", Value: 1})
		So(c.Match(1), ShouldBeTrue)
		So(c.Match(2), ShouldBeFalse)

		c, err = cohort.ParseCondition(" >= 0.5")
		So(err, ShouldBeNil)
		So(c.Op, ShouldEqual, ">=")
		So(c.Match(0.5), ShouldBeTrue)
		So(c.String(), ShouldEqual, ">=0.5")

		c, err = cohort.ParseCondition("<3")
		So(err, ShouldBeNil)
		So(c.Match(3), ShouldBeFalse)

		_, err = cohort.ParseCondition("=1")
		So(errors.Is(err, cohort.ErrBadPredicate), ShouldBeTrue)
		_, err = cohort.ParseCondition(">x")
		So(errors.Is(err, cohort.ErrBadPredicate), ShouldBeTrue)
	})
}

func TestExplore(t *testing.T) {
	Convey("Given a feature table", t, func() {
		rows := []model.CustomerFeatures{
			row("a", "F", "(35, 55]", 1, 4, 10, 20),
			row("b", "F", "(35, 55]", 1, 2, 30),
			row("c", "M", "(17, 35]", 1, 6, 5),
			row("d", "M", "(17, 35]", 0, 9, 5),
			row("e", "O", "(55, 75]", 1, 6, 50),
			row("f", "", "(55, 75]", 1, 1, 1),
		}

		Convey("When grouping bogo responders by gender and age", func() {
			rep, err := cohort.Explore(rows, cohort.Query{
				Keys: []string{"gender", "age_range"}, Metric: "responded_bogo", Condition: "==1",
			})

			Convey("Then groups are ranked by count, transaction count and amount", func() {
				So(err, ShouldBeNil)
				So(rep.Matched, ShouldEqual, 4)
				So(rep.TotalGroups, ShouldEqual, 3)
				So(rep.Groups[0].Values, ShouldResemble, []string{"F", "(35, 55]"})
				So(rep.Groups[0].Count, ShouldEqual, 2)
				So(rep.Groups[0].TransactionCountMean, ShouldEqual, 3)
				So(*rep.Groups[0].AmountMean, ShouldEqual, 22.5)
				So(rep.Groups[1].Values, ShouldResemble, []string{"O", "(55, 75]"})
				So(rep.Groups[2].Values, ShouldResemble, []string{"M", "(17, 35]"})
			})

			Convey("Then marginals sum counts per key", func() {
				So(len(rep.Marginals), ShouldEqual, 2)
				So(rep.Marginals[0].Key, ShouldEqual, "gender")
				So(rep.Marginals[0].Buckets, ShouldResemble, []cohort.Bucket{{Value: "F", Count: 2}, {Value: "M", Count: 1}, {Value: "O", Count: 1}})
				So(rep.Marginals[1].Key, ShouldEqual, "age_range")
			})
		})

		Convey("When only the top group is requested", func() {
			rep, err := cohort.Explore(rows, cohort.Query{Keys: []string{"member_year"}, Metric: "transaction_count", Condition: ">0", Top: 1})

			Convey("Then the list is truncated but marginals cover every group", func() {
				So(err, ShouldBeNil)
				So(len(rep.Groups), ShouldEqual, 1)
				So(rep.Groups[0].Values, ShouldResemble, []string{"2017"})
				So(rep.Groups[0].Count, ShouldEqual, 6)
				So(rep.Marginals[0].Key, ShouldEqual, "member_year")
			})
		})

		Convey("When the query is invalid", func() {
			_, err := cohort.Explore(rows, cohort.Query{Keys: []string{"shoe_size"}, Metric: "responded_bogo", Condition: "==1"})
			So(errors.Is(err, cohort.ErrBadPredicate), ShouldBeTrue)

			_, err = cohort.Explore(rows, cohort.Query{Keys: []string{"gender"}, Metric: "nope", Condition: "==1"})
			So(errors.Is(err, cohort.ErrBadPredicate), ShouldBeTrue)

			_, err = cohort.Explore(rows, cohort.Query{Metric: "responded_bogo", Condition: "==1"})
			So(errors.Is(err, cohort.ErrBadPredicate), ShouldBeTrue)
		})

		Convey("When the metric is null for every row", func() {
			rep, err := cohort.Explore(rows, cohort.Query{Keys: []string{"gender"}, Metric: "bogo_offer_ratio", Condition: ">=0"})
			So(err, ShouldBeNil)
			So(rep.Matched, ShouldEqual, 0)
			So(len(rep.Groups), ShouldEqual, 0)
		})
	})
}
