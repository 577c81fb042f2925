package httpapi

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/neisii/weather-forecast-accuracy/internal/distributor"
	"github.com/neisii/weather-forecast-accuracy/internal/ensemble"
	"github.com/neisii/weather-forecast-accuracy/internal/store"
	"github.com/neisii/weather-forecast-accuracy/internal/weather"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *weather.Service, loader *distributor.Loader, weights *store.WeightStore) {
	v1 := app.Group("/api/v1")

	v1.Get("/weather/current", func(c *fiber.Ctx) error {
		locReq, err := parseLocationQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		loc := locReq.toLocation()

		// All configured providers must answer; the ensemble has no
		// partial-readings mode.
		readings, err := service.FetchAll(c.UserContext(), loc)
		if err != nil {
			return fiber.NewError(fiber.StatusBadGateway, "failed to fetch provider readings")
		}

		prediction, err := ensemble.Predict(loc, readings, loader.Load(c.UserContext()))
		if err != nil {
			if errors.Is(err, ensemble.ErrMissingProvider) {
				return fiber.NewError(fiber.StatusBadGateway, err.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to build prediction")
		}

		return c.JSON(prediction)
	})

	v1.Get("/weights/latest", func(c *fiber.Ctx) error {
		snapshot, err := weights.Latest()
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				// No calibration run has been accepted yet; publish the
				// build-time defaults so consumers always get a usable table.
				return c.JSON(store.AIWeightsSnapshot{
					Version: "default",
					Weights: ensemble.DefaultWeights(),
				})
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to load weight snapshot")
		}
		return c.JSON(snapshot)
	})

	v1.Get("/weights/history", func(c *fiber.Ctx) error {
		history, err := weights.History()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to load weight history")
		}
		return c.JSON(history)
	})
}

// locationQuery holds query parameters for identifying a location.
type locationQuery struct {
	City    string `validate:"required"`
	Country string `validate:"required"`
}

func (l locationQuery) toLocation() weather.Location {
	return weather.Location{
		City:    l.City,
		Country: l.Country,
	}
}

func parseLocationQuery(c *fiber.Ctx) (locationQuery, error) {
	var q locationQuery

	q.City = c.Query("city")
	q.Country = c.Query("country")

	if err := validate.Struct(q); err != nil {
		return q, err
	}

	return q, nil
}
