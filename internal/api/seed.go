package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/hmctech/ordering/pkg/models"
)

// Test-only routes that load the tables with dummy records for local
// development of the dashboard and questionnaire frontends.

var seedAnswers = models.Answers{
	Device:       "laptop",
	OS:           "Windows",
	Screen:       "15.6\"",
	TouchScreen:  "No",
	Uses:         []string{"3D modeling", "programming", "heavy gaming"},
	Location:     "At-home",
	Storage:      "512GB",
	Budget:       "15000",
	FocusAspect1: "Screen",
	FocusAspect2: "Keyboard",
	FocusAspect3: "Battery",
	Notes:        "It must look cool",
}

var seedCustomers = []struct {
	firstName, lastName, email string
}{
	{"John", "Matthews", "jmat@mail.com"},
	{"Kacy", "Like", "jmat@mail.com"},
	{"Opel", "Gert", "jmat@mail.com"},
	{"Macy", "Khold", "jmat@mail.com"},
	{"Lark", "Pops", "jmat@mail.com"},
	{"Mercy", "Juw", "jmat@mail.com"},
	{"Mac", "Killn", "jmat@mail.com"},
	{"Greg", "hue", "jmat@mail.com"},
	{"Sophie", "Thoma", "sopa@mail.com"},
	{"Mary", "Matthews", "mmat@mail.com"},
}

func (s *Server) SeedOrders(w http.ResponseWriter, r *http.Request) {
	for _, c := range seedCustomers {
		order := &models.Order{
			ID:          uuid.New().String(),
			FirstName:   c.firstName,
			LastName:    c.lastName,
			Email:       c.email,
			Answers:     seedAnswers,
			OrderStatus: "INCOMPLETE",
			DatePaid:    "17/02/2022",
			DateCreated: "15/02/2022",
		}
		if err := s.store.PutOrder(r.Context(), order); err != nil {
			s.logger.WithError(err).Error("Failed to seed order")
			s.respondWithError(w)
			return
		}
	}

	s.logger.WithField("count", len(seedCustomers)).Info("Seeded orders table")
	s.respondWithJSON(w, http.StatusOK, "Loaded database with dummy data")
}

func (s *Server) SeedDevices(w http.ResponseWriter, r *http.Request) {
	devices := []*models.Device{
		{
			ID:       uuid.New().String(),
			Name:     "HP Spectre x360 14",
			Retailer: "Incredible Connection",
			Price:    "R34'999.00",
			ImgURL:   "https://www.incredible.co.za/media/catalog/product/c07182636_6068.png",
			Thoughts: "Premium convertible with an excellent screen.",
			OfferURL: "https://www.incredible.co.za/hp-spectre-x360-14",
			TechSpecs: map[string]any{
				"os":          "windows",
				"screenSize":  "14inch",
				"touchScreen": "no",
				"processor":   "Core i7 1165G7",
				"ram":         "16Gb DDR4 soldered",
				"storage":     "1TB SSD",
				"batteryLife": "12 hours",
				"uses":        []string{"3d Modeling", "Heavy gaming", "Programming", "Office"},
			},
		},
		{
			ID:       uuid.New().String(),
			Name:     "Lenovo ThinkPad X1 Carbon Gen 9",
			Retailer: "Takealot",
			Price:    "R29'499.00",
			ImgURL:   "https://media.takealot.com/covers_images/thinkpad-x1.png",
			Thoughts: "Light, sturdy, great keyboard.",
			OfferURL: "https://www.takealot.com/lenovo-thinkpad-x1-carbon-gen-9",
			TechSpecs: map[string]any{
				"os":          "windows",
				"screenSize":  "14inch",
				"touchScreen": "no",
				"processor":   "Core i5 1135G7",
				"ram":         "16Gb LPDDR4x",
				"storage":     "512GB SSD",
				"batteryLife": "15 hours",
				"uses":        []string{"Programming", "Office", "Travel"},
			},
		},
	}

	for _, device := range devices {
		device.DateUpdated = "15/02/2022"
		if err := s.store.PutDevice(r.Context(), device); err != nil {
			s.logger.WithError(err).Error("Failed to seed device")
			s.respondWithError(w)
			return
		}
	}

	s.logger.WithField("count", len(devices)).Info("Seeded devices table")
	s.respondWithJSON(w, http.StatusOK, "Loaded database with dummy data")
}
