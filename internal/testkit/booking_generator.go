package testkit

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"math/rand"
	"strconv"

	"hotelcancel/domain/dataset"
	"hotelcancel/internal/errors"
)

// BookingHeaders is the column layout of the public hotel bookings dataset
var BookingHeaders = []string{
	"hotel", "is_canceled", "lead_time", "arrival_date_year", "arrival_date_month",
	"arrival_date_week_number", "arrival_date_day_of_month", "stays_in_weekend_nights",
	"stays_in_week_nights", "adults", "children", "babies", "meal", "country",
	"market_segment", "distribution_channel", "is_repeated_guest", "previous_cancellations",
	"previous_bookings_not_canceled", "reserved_room_type", "assigned_room_type",
	"booking_changes", "deposit_type", "agent", "company", "days_in_waiting_list",
	"customer_type", "adr", "required_car_parking_spaces", "total_of_special_requests",
}

var (
	months        = []string{"January", "February", "March", "April", "May", "June", "July", "August", "September", "October", "November", "December"}
	meals         = []string{"BB", "HB", "FB", "SC", "Undefined"}
	countries     = []string{"PRT", "GBR", "FRA", "ESP", "DEU", "IRL", "ITA"}
	segments      = []string{"Online TA", "Offline TA/TO", "Groups", "Direct", "Corporate"}
	channels      = []string{"TA/TO", "Direct", "Corporate", "GDS"}
	roomTypes     = []string{"A", "B", "C", "D", "E", "F", "G"}
	customerTypes = []string{"Transient", "Transient-Party", "Contract", "Group"}
)

// BookingGeneratorConfig configures the synthetic booking generator
type BookingGeneratorConfig struct {
	Rows        int     `json:"rows"`
	CancelRate  float64 `json:"cancel_rate"`
	Balanced    bool    `json:"balanced"`
	MissingRate float64 `json:"missing_rate"`
	Seed        int64   `json:"seed"`
}

// DefaultBookingConfig returns a small balanced dataset configuration
func DefaultBookingConfig() BookingGeneratorConfig {
	return BookingGeneratorConfig{
		Rows:        100,
		CancelRate:  0.37,
		Balanced:    true,
		MissingRate: 0.05,
		Seed:        42,
	}
}

// BookingGenerator produces hotel bookings whose cancellation label is
// correlated with lead time, deposit type and cancellation history
type BookingGenerator struct {
	config BookingGeneratorConfig
	rng    *rand.Rand
}

// NewBookingGenerator creates a new booking generator
func NewBookingGenerator(config BookingGeneratorConfig) *BookingGenerator {
	return &BookingGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// Generate builds the bookings table. With Balanced set exactly half of the
// rows (rounded down) are cancelled, in shuffled order.
func (g *BookingGenerator) Generate() (*dataset.Table, error) {
	if g.config.Rows < 1 {
		return nil, errors.InvalidInput(fmt.Sprintf("row count must be positive, got %d", g.config.Rows))
	}
	if g.config.CancelRate < 0 || g.config.CancelRate > 1 {
		return nil, errors.InvalidInput(fmt.Sprintf("cancel rate must be in [0, 1], got %g", g.config.CancelRate))
	}

	labels := make([]int, g.config.Rows)
	if g.config.Balanced {
		for i := 0; i < g.config.Rows/2; i++ {
			labels[i] = 1
		}
		g.rng.Shuffle(len(labels), func(i, j int) { labels[i], labels[j] = labels[j], labels[i] })
	} else {
		for i := range labels {
			if g.rng.Float64() < g.config.CancelRate {
				labels[i] = 1
			}
		}
	}

	rows := make([][]string, g.config.Rows)
	for i, canceled := range labels {
		rows[i] = g.booking(canceled == 1)
	}
	return dataset.NewTable(append([]string(nil), BookingHeaders...), rows)
}

// WriteCSV writes a generated table as a header-first CSV document
func (g *BookingGenerator) WriteCSV(w io.Writer) (int, error) {
	table, err := g.Generate()
	if err != nil {
		return 0, err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(table.Headers); err != nil {
		return 0, errors.Wrap(err, "writing csv header")
	}
	if err := cw.WriteAll(table.Rows); err != nil {
		return 0, errors.Wrap(err, "writing csv rows")
	}
	return table.NumRows(), nil
}

func (g *BookingGenerator) booking(canceled bool) []string {
	values := make(map[string]string, len(BookingHeaders))

	hotel := "City Hotel"
	if g.rng.Float64() < 0.35 {
		hotel = "Resort Hotel"
	}
	values["hotel"] = hotel
	values["is_canceled"] = "0"

	lead := g.rng.ExpFloat64() * 40
	deposit := "No Deposit"
	prevCancels := 0
	if canceled {
		values["is_canceled"] = "1"
		lead = 60 + g.rng.ExpFloat64()*120
		if g.rng.Float64() < 0.4 {
			deposit = "Non Refund"
		}
		if g.rng.Float64() < 0.2 {
			prevCancels = 1 + g.rng.Intn(3)
		}
	} else if g.rng.Float64() < 0.05 {
		deposit = "Refundable"
	}

	monthIdx := g.rng.Intn(len(months))
	week := monthIdx*4 + 1 + g.rng.Intn(5)
	values["lead_time"] = strconv.Itoa(int(math.Round(lead)))
	values["arrival_date_year"] = strconv.Itoa(2015 + g.rng.Intn(3))
	values["arrival_date_month"] = months[monthIdx]
	values["arrival_date_week_number"] = strconv.Itoa(week)
	values["arrival_date_day_of_month"] = strconv.Itoa(1 + g.rng.Intn(28))
	values["stays_in_weekend_nights"] = strconv.Itoa(g.rng.Intn(3))
	values["stays_in_week_nights"] = strconv.Itoa(g.rng.Intn(6))
	values["adults"] = strconv.Itoa(1 + g.rng.Intn(3))
	values["children"] = strconv.Itoa(g.weighted(0.9))
	values["babies"] = strconv.Itoa(g.weighted(0.98))
	values["meal"] = pick(g.rng, meals)
	values["country"] = pick(g.rng, countries)
	values["market_segment"] = pick(g.rng, segments)
	values["distribution_channel"] = pick(g.rng, channels)
	values["is_repeated_guest"] = strconv.Itoa(g.weighted(0.95))
	values["previous_cancellations"] = strconv.Itoa(prevCancels)
	values["previous_bookings_not_canceled"] = strconv.Itoa(g.weighted(0.9))
	room := pick(g.rng, roomTypes)
	values["reserved_room_type"] = room
	values["assigned_room_type"] = room
	values["booking_changes"] = strconv.Itoa(g.weighted(0.8))
	values["deposit_type"] = deposit
	values["agent"] = strconv.Itoa(1 + g.rng.Intn(300))
	values["company"] = "NULL"
	if g.rng.Float64() < 0.1 {
		values["company"] = strconv.Itoa(1 + g.rng.Intn(500))
	}
	values["days_in_waiting_list"] = "0"
	values["customer_type"] = pick(g.rng, customerTypes)
	values["adr"] = strconv.FormatFloat(math.Round((60+g.rng.Float64()*140)*100)/100, 'f', -1, 64)
	values["required_car_parking_spaces"] = "0"
	if !canceled {
		values["required_car_parking_spaces"] = strconv.Itoa(g.weighted(0.9))
	}
	values["total_of_special_requests"] = strconv.Itoa(g.rng.Intn(3))

	row := make([]string, len(BookingHeaders))
	for j, name := range BookingHeaders {
		v := values[name]
		if name != "is_canceled" && name != "hotel" && g.rng.Float64() < g.config.MissingRate {
			v = missingToken(g.rng)
		}
		row[j] = v
	}
	return row
}

// weighted returns 0 with probability p, otherwise 1 or 2
func (g *BookingGenerator) weighted(p float64) int {
	if g.rng.Float64() < p {
		return 0
	}
	return 1 + g.rng.Intn(2)
}

func pick(rng *rand.Rand, values []string) string {
	return values[rng.Intn(len(values))]
}

func missingToken(rng *rand.Rand) string {
	return pick(rng, []string{"", "NA", "NULL"})
}
