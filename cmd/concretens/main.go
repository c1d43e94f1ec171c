package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tabeth/concretens/backend"
	"github.com/tabeth/concretens/dispatch"
	"github.com/tabeth/concretens/server"
)

func main() {
	var (
		port           = flag.Int("port", 8081, "port to listen on")
		accountID      = flag.String("account", "123456789012", "account id used in generated ARNs")
		region         = flag.String("region", "us-east-1", "region used in generated ARNs")
		sqsEndpoint    = flag.String("sqs-endpoint", "", "base URL of a queue service for sqs deliveries")
		lambdaEndpoint = flag.String("lambda-endpoint", "", "base URL of a function runtime for lambda deliveries")
	)
	flag.Parse()

	client := dispatch.NewHTTPClient()
	opts := []dispatch.Option{
		dispatch.WithWebhookPoster(&dispatch.HTTPWebhook{Client: client}),
	}
	if *sqsEndpoint != "" {
		opts = append(opts, dispatch.WithQueueForwarder(&dispatch.SQSForwarder{BaseURL: *sqsEndpoint, Client: client}))
	}
	if *lambdaEndpoint != "" {
		opts = append(opts, dispatch.WithFunctionInvoker(&dispatch.LambdaInvoker{BaseURL: *lambdaEndpoint, Client: client}))
	}

	b := backend.New(*accountID, *region, backend.WithDeliverer(dispatch.New(opts...)))
	app := server.NewApp(b)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	app.RegisterHandlers(r)

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("listening on %s", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatal(err)
	}
}
