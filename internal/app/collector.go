package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/TeamLLMTech/mottag-iot-sprint4/internal/config"
	"github.com/TeamLLMTech/mottag-iot-sprint4/internal/db"
	"github.com/TeamLLMTech/mottag-iot-sprint4/internal/db/migrate"
	"github.com/TeamLLMTech/mottag-iot-sprint4/internal/httpapi"
	"github.com/TeamLLMTech/mottag-iot-sprint4/internal/mqtt"
	"github.com/TeamLLMTech/mottag-iot-sprint4/internal/presence"
)

// RunCollector stores the feed in SQLite and serves it over HTTP.
func RunCollector(ctx context.Context, cfg config.Collector) error {
	logger := slog.Default()
	logger.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"dbDriver", cfg.Driver,
		"sqlitePath", cfg.Path,
		"dbMaxOpenConns", cfg.MaxOpenConns,
		"dbMaxIdleConns", cfg.MaxIdleConns,
		"dbConnMaxLifetime", cfg.ConnMaxLifetime,
		"mqttBroker", cfg.MQTT.Broker,
		"mqttPort", cfg.MQTT.Port,
		"mqttTopic", cfg.MQTT.Topic,
	)

	dbConn, err := db.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(dbConn); closeErr != nil {
			logger.Error("db close", "error", closeErr)
		}
	}()

	if err := migrate.Run(dbConn, logger); err != nil {
		return err
	}

	var ok int
	if err := dbConn.QueryRow(`SELECT 1`).Scan(&ok); err != nil {
		return err
	}
	if ok != 1 {
		return errors.New("database connection failed")
	}
	logger.Info("database connection successful")

	// The handler must be set before Connect: the broker can deliver queued
	// messages right after CONNACK.
	subscriber := mqtt.NewSubscriber(cfg.MQTT, logger)
	mux := httpapi.NewMux(dbConn)
	presence.RegisterFeature(mux, dbConn, subscriber, logger)

	connectCtx, connectCancel := context.WithTimeout(ctx, 5*time.Second)
	err = subscriber.Connect(connectCtx)
	connectCancel()
	if err != nil {
		// The subscriber keeps retrying in the background and subscribes once
		// the broker accepts it. HTTP stays up meanwhile.
		logger.Warn("mqtt connection failed (continuing without mqtt)", "error", err)
	}

	srv := httpapi.NewServer(cfg, mux, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		subscriber.Disconnect()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("mqtt disconnecting")
	subscriber.Disconnect()

	logger.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	err = <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}
