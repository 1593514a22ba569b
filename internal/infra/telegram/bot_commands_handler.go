// internal/infra/telegram/bot_commands_handler.go
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"flight_delay_tracker/internal/app"
	"flight_delay_tracker/internal/domain/flight"
	"flight_delay_tracker/internal/domain/follow"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// FlightService is the part of app.PredictionService the bot commands use.
type FlightService interface {
	Predict(ctx context.Context, in app.PredictInput) (*app.PredictResult, error)
	Follow(ctx context.Context, userID, requestID int64, mode follow.RefreshMode) (*follow.Follow, error)
	Unfollow(ctx context.Context, userID, requestID int64) error
	ListFollows(ctx context.Context, userID int64) ([]app.FollowedFlight, error)
}

const predictUsage = "Usage: /predict <CARRIER> <ORIGIN> <DEST> <YYYY-MM-DDTHH:MM> [FLIGHT_NUMBER]\nTimes are UTC, e.g. /predict AA JFK LAX 2026-10-15T14:00 AA100"

// Inline buttons attached to a prediction reply. The payload is the request id.
var (
	btnFollowT12 = telebot.Btn{Unique: "follow_t12"}
	btnFollowT72 = telebot.Btn{Unique: "follow_t72"}
)

func RegisterBotCommands(ctx context.Context, b *telebot.Bot, svc FlightService, baseLogger *logrus.Entry) {
	logger := baseLogger.WithField("handler_group", "flights")

	b.Handle("/start", func(c telebot.Context) error {
		logger.WithFields(logrus.Fields{"command": "/start", "sender_id": c.Sender().ID}).Info("Processing /start command")
		return c.Send(fmt.Sprintf("Hi, %s! I track flight delay predictions and tell you when a followed flight's outlook changes 12 hours before departure.\n\n%s", c.Sender().FirstName, predictUsage))
	})

	b.Handle("/help", func(c telebot.Context) error {
		var help strings.Builder
		help.WriteString("Commands:\n\n")
		help.WriteString("/predict <CARRIER> <ORIGIN> <DEST> <YYYY-MM-DDTHH:MM> [FLIGHT_NUMBER]\n - Predict the delay status of a flight (UTC).\n\n")
		help.WriteString("/follow <REQUEST_ID> [t12|t72]\n - Get notified if the prediction changes 12h before departure. t72 also keeps it refreshed from 72h out.\n\n")
		help.WriteString("/unfollow <REQUEST_ID>\n - Stop following a flight.\n\n")
		help.WriteString("/myflights\n - List the flights you follow.")
		return c.Send(help.String())
	})

	b.Handle("/predict", func(c telebot.Context) error {
		logCtx := logger.WithFields(logrus.Fields{"command": "/predict", "sender_id": c.Sender().ID})
		in, err := ParsePredictArgs(c.Args())
		if err != nil {
			logCtx.WithError(err).Warn("Invalid command format")
			return c.Send(fmt.Sprintf("%v\n\n%s", err, predictUsage))
		}
		in.UserID = c.Sender().ID
		in.Persist = true
		in.CreateSnapshot = true
		in.Source = follow.SourceUserQuery

		res, err := svc.Predict(ctx, in)
		if err != nil {
			if errors.Is(err, app.ErrInvalidInput) {
				logCtx.WithError(err).Warn("Rejected prediction input")
				return c.Send(fmt.Sprintf("Cannot predict this flight: %v", err))
			}
			logCtx.WithError(err).Error("Prediction failed")
			return c.Send("The prediction service is unavailable right now. Please try again later.")
		}
		logCtx.WithFields(logrus.Fields{
			"request_id": res.Request.ID,
			"status":     res.Prediction.Status,
			"cache_hit":  res.CacheHit,
		}).Info("Prediction served")

		markup := &telebot.ReplyMarkup{}
		id := strconv.FormatInt(res.Request.ID, 10)
		markup.Inline(markup.Row(
			markup.Data("Follow (12h check)", btnFollowT12.Unique, id),
			markup.Data("Follow + refresh", btnFollowT72.Unique, id),
		))
		return c.Send(PredictionText(res.Request, res.Prediction), markup)
	})

	b.Handle("/follow", func(c telebot.Context) error {
		logCtx := logger.WithFields(logrus.Fields{"command": "/follow", "sender_id": c.Sender().ID})
		args := c.Args()
		if len(args) < 1 || len(args) > 2 {
			return c.Send("Usage: /follow <REQUEST_ID> [t12|t72]")
		}
		requestID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return c.Send("Error: the request id must be a number.")
		}
		mode := follow.ModeT12Only
		if len(args) == 2 {
			var ok bool
			if mode, ok = follow.ParseRefreshMode(args[1]); !ok {
				return c.Send("Error: the mode must be t12 or t72.")
			}
		}
		return c.Send(followReply(ctx, svc, logCtx, c.Sender().ID, requestID, mode))
	})

	b.Handle("/unfollow", func(c telebot.Context) error {
		logCtx := logger.WithFields(logrus.Fields{"command": "/unfollow", "sender_id": c.Sender().ID})
		args := c.Args()
		if len(args) != 1 {
			return c.Send("Usage: /unfollow <REQUEST_ID>")
		}
		requestID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return c.Send("Error: the request id must be a number.")
		}
		if err := svc.Unfollow(ctx, c.Sender().ID, requestID); err != nil {
			if errors.Is(err, follow.ErrFollowNotFound) {
				return c.Send(fmt.Sprintf("You are not following request %d.", requestID))
			}
			logCtx.WithError(err).Error("Failed to unfollow")
			return c.Send("Something went wrong. Please try again later.")
		}
		return c.Send(fmt.Sprintf("Stopped following request %d.", requestID))
	})

	b.Handle("/myflights", func(c telebot.Context) error {
		logCtx := logger.WithFields(logrus.Fields{"command": "/myflights", "sender_id": c.Sender().ID})
		flights, err := svc.ListFollows(ctx, c.Sender().ID)
		if err != nil {
			logCtx.WithError(err).Error("Failed to list follows")
			return c.Send("Something went wrong. Please try again later.")
		}
		if len(flights) == 0 {
			return c.Send("You are not following any flights.")
		}
		var out strings.Builder
		out.WriteString("Followed flights:\n")
		for _, f := range flights {
			state := "active"
			if !f.Request.Active {
				state = "closed"
			}
			fmt.Fprintf(&out, "#%d %s [%s, %s]\n", f.Request.ID, FlightLabel(f.Request), f.Follow.Mode, state)
		}
		return c.Send(out.String())
	})

	followCallback := func(mode follow.RefreshMode) telebot.HandlerFunc {
		return func(c telebot.Context) error {
			logCtx := logger.WithFields(logrus.Fields{"callback": "follow", "sender_id": c.Sender().ID, "mode": mode})
			requestID, err := strconv.ParseInt(c.Data(), 10, 64)
			if err != nil {
				logCtx.WithField("data", c.Data()).Warn("Invalid request id in callback")
				return c.Respond(&telebot.CallbackResponse{Text: "Invalid request."})
			}
			if err := c.Respond(); err != nil {
				logCtx.WithError(err).Warn("Failed to acknowledge callback")
			}
			return c.Send(followReply(ctx, svc, logCtx, c.Sender().ID, requestID, mode))
		}
	}
	b.Handle(&btnFollowT12, followCallback(follow.ModeT12Only))
	b.Handle(&btnFollowT72, followCallback(follow.ModeT72Refresh))
}

func followReply(ctx context.Context, svc FlightService, logCtx *logrus.Entry, userID, requestID int64, mode follow.RefreshMode) string {
	logCtx = logCtx.WithField("request_id", requestID)
	f, err := svc.Follow(ctx, userID, requestID, mode)
	if err != nil {
		switch {
		case errors.Is(err, flight.ErrRequestNotFound):
			return fmt.Sprintf("Request %d does not exist. Use /predict first.", requestID)
		case errors.Is(err, app.ErrInvalidInput):
			logCtx.WithError(err).Warn("Follow rejected")
			return fmt.Sprintf("Cannot follow request %d: %v", requestID, err)
		default:
			logCtx.WithError(err).Error("Failed to follow")
			return "Something went wrong. Please try again later."
		}
	}
	logCtx.Info("Follow saved")
	if f.Mode == follow.ModeT72Refresh {
		return fmt.Sprintf("Following request %d. The prediction is refreshed every 3 hours from 72h before departure and you will hear from me if it changes at the 12h mark.", requestID)
	}
	return fmt.Sprintf("Following request %d. You will hear from me if the prediction changes at the 12h mark.", requestID)
}

// ParsePredictArgs parses "/predict CARRIER ORIGIN DEST DATETIME [FLIGHT_NUMBER]".
func ParsePredictArgs(args []string) (app.PredictInput, error) {
	if len(args) < 4 || len(args) > 5 {
		return app.PredictInput{}, errors.New("wrong number of arguments")
	}
	date, err := parseFlightTime(args[3])
	if err != nil {
		return app.PredictInput{}, err
	}
	in := app.PredictInput{
		Carrier:    args[0],
		Origin:     args[1],
		Dest:       args[2],
		FlightDate: date,
	}
	if len(args) == 5 {
		in.FlightNumber = args[4]
	}
	return in, nil
}

func parseFlightTime(raw string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02T15:04", time.RFC3339, "2006-01-02 15:04"} {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid departure time %q", raw)
}

// PredictionText renders a prediction reply.
func PredictionText(req *flight.Request, p *flight.Prediction) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", FlightLabel(req))
	fmt.Fprintf(&b, "Prediction: %s (delay probability %.0f%%", p.Status, p.Probability*100)
	if p.Confidence != "" {
		fmt.Fprintf(&b, ", confidence %s", strings.ToLower(p.Confidence))
	}
	b.WriteString(")\n")
	fmt.Fprintf(&b, "Request id: %d", req.ID)
	return b.String()
}
