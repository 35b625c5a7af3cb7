package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/ardikapras/netbill/app/controllers"
	"github.com/ardikapras/netbill/app/repository"
	"github.com/ardikapras/netbill/internal/pkg/billing"
	"github.com/ardikapras/netbill/internal/pkg/cache"
	"github.com/ardikapras/netbill/internal/pkg/database"
	"github.com/ardikapras/netbill/internal/pkg/env"
	"github.com/ardikapras/netbill/internal/pkg/jobqueue"
	"github.com/ardikapras/netbill/internal/pkg/provision"
	"github.com/ardikapras/netbill/internal/pkg/router"
	"github.com/ardikapras/netbill/internal/pkg/routeros"
	"github.com/ardikapras/netbill/internal/pkg/xendit"
)

func main() {
	app, manager := NewApplication()

	// Stop background workers cleanly on SIGINT/SIGTERM.
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		manager.Stop()
		_ = app.Shutdown()
	}()

	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() (*fiber.App, *jobqueue.Manager) {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	db := database.GetDB()
	repository.InitializeFactory(db)

	gateway := xendit.NewClientFromEnv()
	resolver := routeros.NewResolver(repository.GetGlobalFactory().GetRouterConfigRepository())
	provisioner := provision.NewRouterProvisioner(resolver)

	svc := billing.NewServiceFromDB(db, gateway, provisioner, nil,
		env.GetEnv("PUBLIC_BASE_URL", "http://localhost:4000"))

	manager := jobqueue.Initialize(svc)
	svc.SetRetryEnqueuer(manager.Enqueuer())
	manager.Start()

	controllers.Initialize(svc, resolver, gateway)

	app := fiber.New(fiber.Config{
		AppName: "netbill",
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// fiber metrics
	app.Get("/metrics", basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("ADMIN_USER", "admin"): env.GetEnv("ADMIN_PASSWORD", "admin"),
		},
	}), monitor.New())

	// ROUTER
	router.InstallRouter(app)

	return app, manager
}
