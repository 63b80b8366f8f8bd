package medication

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

var (
	ErrInvalidMedication  = errors.New("invalid medication")
	ErrMedicationNotFound = errors.New("medication not found")
)

const (
	MinDailyFrequency = 1
	MaxDailyFrequency = 10

	// DueWindow is how close a scheduled time must be to count as due.
	DueWindow = 15 * time.Minute

	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
)

var Units = []string{"ml", "mg", "g", "unidade", "gomas", "gotas", "comprimidos", "cápsulas"}

type Contact struct {
	Site          string `json:"site,omitempty"`
	Phone         string `json:"phone,omitempty"`
	ReferenceName string `json:"referenceName,omitempty"`
}

func (c *Contact) empty() bool {
	return c == nil || (c.Site == "" && c.Phone == "" && c.ReferenceName == "")
}

type Medication struct {
	ID             string    `json:"id"`
	PatientID      string    `json:"-"`
	Name           string    `json:"name"`
	Brand          string    `json:"brand"`
	Bottles        float64   `json:"bottles"`
	AmountPerUnit  float64   `json:"amountPerUnit"`
	Unit           string    `json:"unit"`
	ExpiryDate     string    `json:"expiryDate"`
	DailyFrequency int       `json:"dailyFrequency"`
	Schedule       []string  `json:"schedule"`
	PricePaid      float64   `json:"pricePaid"`
	DosePerUse     float64   `json:"dosePerUse"`
	Contact        *Contact  `json:"contact,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Inventory is a medication together with its derived stock and cost figures.
type Inventory struct {
	Medication
	StockAvailable float64 `json:"stockAvailable"`
	DailyCost      float64 `json:"dailyCost"`
	TotalCost      float64 `json:"totalCost"`
	DaysOfSupply   float64 `json:"daysOfSupply"`
}

// StockAvailable is the total amount on hand, in Unit.
func (m *Medication) StockAvailable() float64 {
	return m.Bottles * m.AmountPerUnit
}

// DailyUse is the amount consumed per day, in Unit.
func (m *Medication) DailyUse() float64 {
	return float64(m.DailyFrequency) * m.DosePerUse
}

// DailyCost spreads the price paid over the stock at the daily use rate.
func (m *Medication) DailyCost() float64 {
	stock := m.StockAvailable()
	if stock == 0 {
		return 0
	}
	return m.PricePaid / stock * m.DailyUse()
}

func (m *Medication) TotalCost() float64 {
	return m.PricePaid
}

// DaysOfSupply is 0 when the medication has no daily use.
func (m *Medication) DaysOfSupply() float64 {
	use := m.DailyUse()
	if use == 0 {
		return 0
	}
	return m.StockAvailable() / use
}

func (m *Medication) Inventory() Inventory {
	return Inventory{
		Medication:     *m,
		StockAvailable: m.StockAvailable(),
		DailyCost:      m.DailyCost(),
		TotalCost:      m.TotalCost(),
		DaysOfSupply:   m.DaysOfSupply(),
	}
}

// Normalize trims text fields and drops an empty contact.
func (m *Medication) Normalize() {
	m.Name = strings.TrimSpace(m.Name)
	m.Brand = strings.TrimSpace(m.Brand)
	m.Unit = strings.TrimSpace(m.Unit)
	m.ExpiryDate = strings.TrimSpace(m.ExpiryDate)
	for i, slot := range m.Schedule {
		m.Schedule[i] = strings.TrimSpace(slot)
	}
	if m.Schedule == nil {
		m.Schedule = []string{}
	}
	if m.Contact.empty() {
		m.Contact = nil
	}
}

// Validate reports the first problem found, wrapped in ErrInvalidMedication.
func (m *Medication) Validate() error {
	switch {
	case m.Name == "":
		return invalid("name is required")
	case m.Brand == "":
		return invalid("brand is required")
	case !positive(m.Bottles):
		return invalid("bottles must be positive")
	case !positive(m.AmountPerUnit):
		return invalid("amountPerUnit must be positive")
	case m.Unit == "":
		return invalid("unit is required")
	case !positive(m.PricePaid):
		return invalid("pricePaid must be positive")
	case !positive(m.DosePerUse):
		return invalid("dosePerUse must be positive")
	}

	if _, err := time.Parse(dateLayout, m.ExpiryDate); err != nil {
		return invalid("expiryDate must be YYYY-MM-DD")
	}
	if m.DailyFrequency < MinDailyFrequency || m.DailyFrequency > MaxDailyFrequency {
		return invalid(fmt.Sprintf("dailyFrequency must be between %d and %d", MinDailyFrequency, MaxDailyFrequency))
	}
	if len(m.Schedule) != m.DailyFrequency {
		return invalid(fmt.Sprintf("schedule needs exactly %d times", m.DailyFrequency))
	}
	for _, slot := range m.Schedule {
		if slot == "" {
			return invalid("every schedule time must be filled")
		}
		if _, err := time.Parse(clockLayout, slot); err != nil {
			return invalid(fmt.Sprintf("schedule time %q must be HH:MM", slot))
		}
	}
	return nil
}

// Expired reports whether the expiry date is before now's calendar day.
func (m *Medication) Expired(now time.Time) bool {
	expiry, err := time.ParseInLocation(dateLayout, m.ExpiryDate, now.Location())
	if err != nil {
		return false
	}
	y, mo, d := now.Date()
	return expiry.Before(time.Date(y, mo, d, 0, 0, 0, 0, now.Location()))
}

// DueSoon reports whether any scheduled time falls within window of now,
// before or after, on now's day in now's location.
func (m *Medication) DueSoon(now time.Time, window time.Duration) bool {
	_, ok := m.NextDue(now, window)
	return ok
}

// NextDue returns the first scheduled time within window of now.
func (m *Medication) NextDue(now time.Time, window time.Duration) (time.Time, bool) {
	y, mo, d := now.Date()
	for _, slot := range m.Schedule {
		t, err := time.Parse(clockLayout, slot)
		if err != nil {
			continue
		}
		scheduled := time.Date(y, mo, d, t.Hour(), t.Minute(), 0, 0, now.Location())
		if math.Abs(float64(scheduled.Sub(now))) <= float64(window) {
			return scheduled, true
		}
	}
	return time.Time{}, false
}

func invalid(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidMedication, reason)
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
