package api

import (
	"net/http"

	"github.com/consultly/consultly-server/service/booking"
	"github.com/consultly/consultly-server/service/chat"
	"github.com/consultly/consultly-server/service/events"
	"github.com/consultly/consultly-server/service/realtime"
	"github.com/consultly/consultly-server/service/schedule"
	"github.com/consultly/consultly-server/service/slots"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type APIServer struct {
	address string
	db      *gorm.DB
	logger  zerolog.Logger
}

func NewApiServer(address string, db *gorm.DB, logger zerolog.Logger) *APIServer {
	return &APIServer{
		address: address,
		db:      db,
		logger:  logger,
	}
}

func (s *APIServer) Run() error {
	router := mux.NewRouter()
	subrouter := router.PathPrefix("/api/v1").Subrouter()

	// Presence and delivery first: the relay pushes through the hub, the
	// ledger publishes to the relay via the bus.
	hub := realtime.NewHub(s.logger)
	chatStore := chat.NewStore(s.db)
	relay := chat.NewRelay(chatStore, hub, s.logger)

	bus := events.NewBus(s.logger)
	bus.Subscribe(relay.HandleBookingEvent)

	scheduleStore := schedule.NewStore(s.db, s.logger)
	scheduleHandler := schedule.NewHandler(scheduleStore)
	scheduleHandler.RegisterRoutes(subrouter)

	projector := slots.NewProjector(s.db)
	slotsHandler := slots.NewHandler(projector)
	slotsHandler.RegisterRoutes(subrouter)

	ledger := booking.NewLedger(s.db, projector, bus, s.logger)
	bookingHandler := booking.NewHandler(ledger)
	bookingHandler.RegisterRoutes(subrouter)

	chatHandler := chat.NewHandler(chatStore)
	chatHandler.RegisterRoutes(subrouter)

	wsHandler := realtime.NewHandler(hub, relay, s.logger)
	wsHandler.RegisterRoutes(router)

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)

	s.logger.Info().Str("address", s.address).Msg("server running")
	return http.ListenAndServe(s.address, cors(router))
}
