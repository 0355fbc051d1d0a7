package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/cscoaching/slot-booking/internal/booking"
	"github.com/cscoaching/slot-booking/internal/config"
	"github.com/cscoaching/slot-booking/internal/database"
	"github.com/cscoaching/slot-booking/internal/handler"
	"github.com/cscoaching/slot-booking/internal/maintenance"
	"github.com/cscoaching/slot-booking/internal/notify"
	"github.com/cscoaching/slot-booking/internal/queue"
	"github.com/cscoaching/slot-booking/internal/repository"
	"github.com/cscoaching/slot-booking/internal/router"
	"github.com/cscoaching/slot-booking/internal/schedule"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	if err := database.EnsureSchema(context.Background(), db); err != nil {
		log.Fatalf("schema: %v", err)
	}

	loc, err := time.LoadLocation(cfg.BusinessTZ)
	if err != nil {
		log.Fatalf("invalid BUSINESS_TZ %q: %v", cfg.BusinessTZ, err)
	}
	policy := schedule.Default(loc)

	store := repository.NewStore(db)
	notifier := notify.NewPublisher(cfg.AMQPURL)
	engine := booking.NewEngine(store, notifier)
	maint := maintenance.New(store, policy, time.Duration(cfg.SlotDurationMin)*time.Minute)

	rdb := config.NewRedisClient()

	// Background workers: the notification consumer drains the queue
	// and the maintainer keeps the slot horizon populated.
	go func() {
		if err := queue.StartNotificationConsumer(cfg.AMQPURL); err != nil {
			log.Printf("notify-consumer: stopped: %v", err)
		}
	}()
	maint.StartDaily(context.Background(), cfg.MaintenanceAt, cfg.HorizonDays)

	// Top the horizon up once at boot so a fresh install has slots
	// before the first nightly run.
	if res, err := maint.Run(context.Background(), cfg.HorizonDays); err != nil {
		log.Printf("maintenance: startup run failed: %v", err)
	} else {
		log.Printf("maintenance: startup run purged %d, created %d", res.Purged, res.Created)
	}

	e := echo.New()
	e.HideBanner = true

	router.Register(e, cfg, router.Handlers{
		Auth:          handler.NewAuthHandler(cfg, store),
		Slots:         handler.NewSlotHandler(cfg, store, policy),
		Bookings:      handler.NewBookingHandler(engine),
		Members:       handler.NewMemberHandler(store, engine),
		AdminMembers:  handler.NewAdminMemberHandler(store, notifier),
		AdminSlots:    handler.NewAdminSlotHandler(cfg, store, policy, engine, maint, notifier),
		AdminBookings: handler.NewAdminBookingHandler(store, engine),
		AdminHolidays: handler.NewAdminHolidayHandler(store),
	}, rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
