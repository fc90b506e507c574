// README: Entry point; loads config, wires services, starts the HTTP server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"carpool/internal/config"
	httptransport "carpool/internal/http"
	"carpool/internal/infra"
	"carpool/internal/logging"
	"carpool/internal/maps"
	"carpool/internal/modules/conversation"
	"carpool/internal/modules/fare"
	"carpool/internal/modules/matching"
	"carpool/internal/modules/profile"
	"carpool/internal/modules/ride"
	"carpool/internal/notify"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	logging.Setup(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}
	defer dbPool.Close()

	redisClient := infra.NewRedis(cfg.Redis.Addr)
	defer redisClient.Close()

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Fatal().Err(err).Str("timezone", cfg.Timezone).Msg("load timezone")
	}

	rideStore := ride.NewStore(dbPool)
	profileStore := profile.NewStore(dbPool)
	sessionStore := conversation.NewRedisStore(redisClient, time.Duration(cfg.Session.TTLMinutes)*time.Minute)

	fareCalc := fare.NewCalculator(fare.Config{
		MinimumFare: cfg.Fare.MinimumFare,
		RatePerKm:   cfg.Fare.RatePerKm,
		Split:       fare.SplitStrategy(cfg.Fare.Split),
		Currency:    cfg.Fare.Currency,
	})
	engine := matching.NewEngine(rideStore, fareCalc, matching.Config{
		TimeWindow:     time.Duration(cfg.Matching.TimeWindowSeconds) * time.Second,
		OriginRadiusKm: cfg.Matching.OriginRadiusKm,
		DestRadiusKm:   cfg.Matching.DestRadiusKm,
		Preference:     matching.PreferenceRule(cfg.Matching.Preference),
	})

	var notifier notify.Notifier = notify.LogNotifier{}
	if cfg.Notify.ReplyURL != "" && cfg.Notify.PushURL != "" {
		notifier = notify.NewHTTPNotifier(cfg.Notify.ReplyURL, cfg.Notify.PushURL, cfg.Notify.Token)
	}

	var geocoder conversation.Geocoder
	if cfg.Maps.APIKey != "" {
		preview, err := maps.NewPreviewService(cfg.Maps.APIKey)
		if err != nil {
			log.Fatal().Err(err).Msg("maps init")
		}
		geocoder = preview
	} else {
		log.Warn().Msg("no maps api key; free-text places disabled")
	}

	conversationSvc := conversation.NewService(sessionStore, profileStore, rideStore, engine, notifier, geocoder, loc)

	router := httptransport.NewRouter(httptransport.RouterDeps{
		Conversation: conversationSvc,
		Rides:        rideStore,
	})
	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: router}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server shutdown")
		}
	}()

	log.Info().Str("addr", cfg.HTTP.Addr).Msg("listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("server")
	}
}
