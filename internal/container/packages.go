package container

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor" // CBOR format support for huma
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/serroba/ledger-shortener/internal/analytics"
	analyticsstore "github.com/serroba/ledger-shortener/internal/analytics/store"
	"github.com/serroba/ledger-shortener/internal/flow"
	"github.com/serroba/ledger-shortener/internal/handlers"
	"github.com/serroba/ledger-shortener/internal/health"
	"github.com/serroba/ledger-shortener/internal/ledger"
	"github.com/serroba/ledger-shortener/internal/messaging"
	"github.com/serroba/ledger-shortener/internal/middleware"
	"github.com/serroba/ledger-shortener/internal/migrations"
	"github.com/serroba/ledger-shortener/internal/process"
	"github.com/serroba/ledger-shortener/internal/ratelimit"
	"github.com/serroba/ledger-shortener/internal/shortener"
	"github.com/serroba/ledger-shortener/internal/store"
	"github.com/serroba/ledger-shortener/internal/wallet"
	"go.uber.org/zap"
)

var errInvalidOptions = errors.New("invalid options")

// RedisClient closes the Redis connection pool on injector shutdown.
type RedisClient struct {
	redis.UniversalClient
}

func (c *RedisClient) Shutdown() error {
	return c.Close()
}

// Ledger groups the read and write sides of the ledger network.
type Ledger struct {
	Querier   ledger.Querier
	Transport process.Transport
	Health    health.Checker
}

// LoggerPackage provides a zap logger in the configured format.
func LoggerPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*zap.Logger, error) {
		return NewLogger(do.MustInvoke[*Options](i).LogFormat)
	})
}

// NewLogger returns a production logger for "json" and a development logger
// otherwise.
func NewLogger(format string) (*zap.Logger, error) {
	if format == "json" {
		return zap.NewProduction()
	}

	return zap.NewDevelopment()
}

// RedisPackage provides the Redis client when an address is configured.
func RedisPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*RedisClient, error) {
		opts := do.MustInvoke[*Options](i)
		if opts.RedisAddr == "" {
			return nil, errors.New("redis is not configured")
		}

		return &RedisClient{UniversalClient: redis.NewClient(&redis.Options{Addr: opts.RedisAddr})}, nil
	})
}

// LedgerPackage provides the ledger gateway and compute transport, or an
// in-memory ledger serving both when no gateway is configured.
func LedgerPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*Ledger, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		if err := opts.validate(); err != nil {
			return nil, err
		}

		if opts.Offline() {
			memory := store.NewMemoryLedger(opts.AppName, time.Duration(opts.LedgerLagMS)*time.Millisecond)
			logger.Warn("no ledger gateway configured, using in-memory ledger")

			return &Ledger{Querier: memory, Transport: memory, Health: memory}, nil
		}

		client := &http.Client{Timeout: opts.httpTimeout()}
		gateway := ledger.NewGraphQLClient(opts.IndexURL, client, logger)

		return &Ledger{
			Querier:   gateway,
			Transport: process.NewHTTPTransport(opts.MUURL, opts.CUURL, client),
			Health:    gateway,
		}, nil
	})
}

// ShortenerPackage provides the scoped index and the code allocator.
func ShortenerPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (shortener.Index, error) {
		opts := do.MustInvoke[*Options](i)
		l := do.MustInvoke[*Ledger](i)

		return store.NewLedgerIndex(l.Querier, opts.AppName, opts.ProcessID), nil
	})

	do.Provide(injector, func(i *do.Injector) (*shortener.Allocator, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)
		l := do.MustInvoke[*Ledger](i)

		generator, err := shortener.NewCodeGenerator()
		if err != nil {
			return nil, err
		}

		dispatcher := process.NewDispatcher(opts.ProcessID, l.Transport, logger)

		return shortener.NewAllocator(
			do.MustInvoke[shortener.Index](i),
			dispatcher,
			generator,
			opts.MaxAttempts,
			logger,
		), nil
	})
}

// SessionPackage provides the session factory and registry.
func SessionPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*flow.Factory, error) {
		opts := do.MustInvoke[*Options](i)

		return &flow.Factory{
			Index:     do.MustInvoke[shortener.Index](i),
			Allocator: do.MustInvoke[*shortener.Allocator](i),
			Providers: walletProviders(opts),
			BaseURL:   opts.BaseURL(),
			Logger:    do.MustInvoke[*zap.Logger](i),
		}, nil
	})

	do.Provide(injector, func(i *do.Injector) (*flow.Sessions, error) {
		opts := do.MustInvoke[*Options](i)

		return flow.NewSessions(do.MustInvoke[*flow.Factory](i), opts.sessionTTL()), nil
	})

	do.Provide(injector, func(i *do.Injector) (*middleware.SessionTokens, error) {
		opts := do.MustInvoke[*Options](i)

		secret := opts.SessionSecret
		if secret == "" {
			// Sessions are memory only, so a per-process secret loses nothing.
			secret = uuid.NewString()
		}

		return middleware.NewSessionTokens(secret, middleware.DefaultTokenTTL), nil
	})
}

// walletProviders lists providers in priority order: the extension agent,
// then the custodial service when configured.
func walletProviders(opts *Options) []wallet.Provider {
	client := &http.Client{Timeout: opts.httpTimeout()}
	providers := []wallet.Provider{wallet.NewExtensionProvider(opts.WalletAgentURL, client)}

	if opts.CustodialURL != "" {
		providers = append(providers, wallet.NewCustodialProvider(wallet.CustodialConfig{
			BaseURL:      opts.CustodialURL,
			TokenURL:     opts.CustodialTokenURL,
			ClientID:     opts.CustodialClientID,
			ClientSecret: opts.CustodialClientSecret,
			Timeout:      opts.httpTimeout(),
		}))
	}

	return providers
}

// RateLimitPackage provides the limiter, backed by Redis when configured.
func RateLimitPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*ratelimit.Limiter, error) {
		opts := do.MustInvoke[*Options](i)
		defaults := []ratelimit.Limit{{Window: time.Minute, Max: 100}}

		if opts.RedisAddr == "" {
			return ratelimit.NewLimiter(store.NewRateLimitMemoryStore(), defaults), nil
		}

		client := do.MustInvoke[*RedisClient](i)

		return ratelimit.NewLimiter(store.NewRateLimitRedisStore(client.UniversalClient), defaults), nil
	})
}

// PublisherGroupPackage provides the analytics publisher. Without Redis,
// events go over an in-process channel to a consumer group that only logs
// them.
func PublisherGroupPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*gochannel.GoChannel, error) {
		logger := do.MustInvoke[*zap.Logger](i)

		return gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, messaging.NewZapLogger(logger)), nil
	})

	do.Provide(injector, func(i *do.Injector) (*messaging.PublisherGroup, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		if opts.RedisAddr != "" {
			publisher, err := messaging.NewRedisPublisher(do.MustInvoke[*RedisClient](i).UniversalClient, logger)
			if err != nil {
				return nil, err
			}

			return messaging.NewPublisherGroup(publisher), nil
		}

		// Started before the publisher exists so no event is published without
		// a subscriber.
		if err := do.MustInvoke[*messaging.ConsumerGroup](i).Start(context.Background()); err != nil {
			return nil, err
		}

		return messaging.NewPublisherGroup(do.MustInvoke[*gochannel.GoChannel](i)), nil
	})

	do.Provide(injector, func(i *do.Injector) (*messaging.ConsumerGroup, error) {
		logger := do.MustInvoke[*zap.Logger](i)
		pubsub := do.MustInvoke[*gochannel.GoChannel](i)

		return newConsumerGroup(pubsub, analyticsstore.NewNoop(logger), logger), nil
	})

	do.Provide(injector, func(i *do.Injector) (*analytics.Publishers, error) {
		return analytics.NewPublishers(do.MustInvoke[*messaging.PublisherGroup](i).Publisher()), nil
	})
}

// ConsumerGroupPackage provides the Redis stream consumer group of the
// analytics worker. The worker provides its own analytics.Store.
func ConsumerGroupPackage(injector *do.Injector, consumerGroup string) {
	do.Provide(injector, func(i *do.Injector) (*messaging.ConsumerGroup, error) {
		logger := do.MustInvoke[*zap.Logger](i)

		subscriber, err := messaging.NewRedisSubscriber(do.MustInvoke[*RedisClient](i).UniversalClient, consumerGroup, logger)
		if err != nil {
			return nil, err
		}

		return newConsumerGroup(subscriber, do.MustInvoke[analytics.Store](i), logger), nil
	})
}

func newConsumerGroup(subscriber message.Subscriber, sink analytics.Store, logger *zap.Logger) *messaging.ConsumerGroup {
	group := messaging.NewConsumerGroup(subscriber, logger)
	for _, consumer := range analytics.NewConsumers(subscriber, sink, logger) {
		group.Add(consumer)
	}

	return group
}

// HTTPPackage provides the router and the API with middleware and routes.
func HTTPPackage(injector *do.Injector) {
	do.Provide(injector, func(_ *do.Injector) (*chi.Mux, error) {
		return chi.NewMux(), nil
	})

	do.Provide(injector, func(i *do.Injector) (huma.API, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)
		sessions := do.MustInvoke[*flow.Sessions](i)
		factory := do.MustInvoke[*flow.Factory](i)
		cookie := handlers.SessionCookie{Name: handlers.DefaultSessionCookie.Name, Secure: opts.SecureCookies}

		api := humachi.New(do.MustInvoke[*chi.Mux](i), huma.DefaultConfig("Ledger URL Shortener", "1.0.0"))

		api.UseMiddleware(middleware.RequestMeta(api))
		api.UseMiddleware(middleware.RateLimiter(api, do.MustInvoke[*ratelimit.Limiter](i), logger))
		api.UseMiddleware(middleware.Session(
			api,
			sessions,
			do.MustInvoke[*middleware.SessionTokens](i),
			cookie,
			logger,
		))

		handlers.RegisterRoutes(api,
			handlers.NewLinkHandler(factory, do.MustInvoke[*analytics.Publishers](i), logger),
			handlers.NewSessionHandler(sessions, cookie),
		)

		health.RegisterRoutes(api, health.NewHandler(healthChecks(i, opts)))

		return api, nil
	})
}

func healthChecks(i *do.Injector, opts *Options) map[string]health.Checker {
	checks := map[string]health.Checker{
		"index": do.MustInvoke[*Ledger](i).Health,
	}

	if opts.RedisAddr != "" {
		checks["redis"] = health.NewRedisChecker(do.MustInvoke[*RedisClient](i).UniversalClient)
	}

	return checks
}

// PostgresPool closes the pool on injector shutdown.
type PostgresPool struct {
	*pgxpool.Pool
}

func (p *PostgresPool) Shutdown() error {
	p.Close()

	return nil
}

// AnalyticsStorePackage provides where the worker keeps events: Postgres,
// migrated on first use, or a logging no-op when persist is false.
func AnalyticsStorePackage(injector *do.Injector, databaseURL string, persist bool) {
	do.Provide(injector, func(i *do.Injector) (*PostgresPool, error) {
		logger := do.MustInvoke[*zap.Logger](i)

		if err := migrations.NewMigrator(databaseURL, logger).RunUp(); err != nil {
			return nil, fmt.Errorf("migrate analytics schema: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		pool, err := pgxpool.New(ctx, databaseURL)
		if err != nil {
			return nil, err
		}

		if err := pool.Ping(ctx); err != nil {
			pool.Close()

			return nil, fmt.Errorf("connect analytics database: %w", err)
		}

		return &PostgresPool{Pool: pool}, nil
	})

	do.Provide(injector, func(i *do.Injector) (analytics.Store, error) {
		if !persist {
			return analyticsstore.NewNoop(do.MustInvoke[*zap.Logger](i)), nil
		}

		return analyticsstore.NewPostgres(do.MustInvoke[*PostgresPool](i).Pool), nil
	})
}
