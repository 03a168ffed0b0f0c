/*
Copyright 2025 Covenant Contributors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Main entrypoint for the Covenant advisor.
//
// Coverage: Excluded - main entrypoints are tested via E2E tests

package main

import (
	"context"
	"crypto/tls"
	"flag"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
	ctrlmetrics "sigs.k8s.io/controller-runtime/pkg/metrics"

	"github.com/nextdoor/covenant/internal/cache"
	"github.com/nextdoor/covenant/internal/controller"
	"github.com/nextdoor/covenant/pkg/aws"
	"github.com/nextdoor/covenant/pkg/config"
	"github.com/nextdoor/covenant/pkg/metrics"
)

var setupLog = ctrl.Log.WithName("setup")

// advisorDebounce is how long to wait after the last cache update before
// re-running the analysis. On startup both collectors finish within a
// second or two of each other; debouncing coalesces that into one pass.
const advisorDebounce = 1 * time.Second

// run wires up the collectors, the advisor, and the HTTP endpoints and
// blocks until the process receives a shutdown signal.
//
// coverage:ignore - wiring code, tested via E2E
func run(
	cfg *config.Config,
	metricsAddr string,
	probeAddr string,
	secureMetrics bool,
	metricsCertPath, metricsCertName, metricsCertKey string,
	tlsOpts []func(*tls.Config),
) error {
	// Create AWS client
	awsClient, err := aws.NewClient(aws.ClientConfig{
		DefaultRegion: cfg.DefaultRegion,
	})
	if err != nil {
		return err
	}
	setupLog.Info("created AWS client")

	// Initialize Prometheus metrics on the controller-runtime registry so
	// the standard Go and process collectors come along for free
	metricsRegistry := ctrlmetrics.Registry
	covenantMetrics := metrics.NewMetrics(metricsRegistry)
	covenantMetrics.ControllerRunning.Set(1)
	setupLog.Info("metrics initialized")

	// Initialize data caches
	usageCache := cache.NewUsageCache()
	planCache := cache.NewPlanCache()
	setupLog.Info("initialized usage and plan caches")

	// Readiness channels let the advisor wait for the first collection
	// cycle of each data source before its initial analysis
	usageReady := make(chan struct{})
	plansReady := make(chan struct{})

	usageReconciler := &controller.UsageReconciler{
		AWSClient: awsClient,
		Config:    cfg,
		Cache:     usageCache,
		Metrics:   covenantMetrics,
		Log:       ctrl.Log.WithName("usage-reconciler"),
		ReadyChan: usageReady,
	}

	planReconciler := &controller.PlanReconciler{
		AWSClient: awsClient,
		Config:    cfg,
		Cache:     planCache,
		Metrics:   covenantMetrics,
		Log:       ctrl.Log.WithName("plan-reconciler"),
		ReadyChan: plansReady,
	}

	advisor := &controller.AdvisorReconciler{
		Config:         cfg,
		AWSClient:      awsClient,
		UsageCache:     usageCache,
		PlanCache:      planCache,
		Metrics:        covenantMetrics,
		Log:            ctrl.Log.WithName("advisor-reconciler"),
		UsageReadyChan: usageReady,
		PlansReadyChan: plansReady,
	}

	ctx := ctrl.SetupSignalHandler()

	// Cache updates trigger re-analysis through the debouncer, so a usage
	// refresh and a plan refresh landing together produce one pass
	debouncer := cache.NewDebouncer(advisorDebounce, func() {
		if err := advisor.Reconcile(ctx); err != nil {
			setupLog.Error(err, "debounced analysis failed")
		}
	})
	advisor.Debouncer = debouncer
	usageCache.RegisterUpdateNotifier(debouncer.Trigger)
	planCache.RegisterUpdateNotifier(debouncer.Trigger)
	setupLog.Info("wired cache update notifications to the advisor",
		"debounce", advisorDebounce.String())

	// Start collectors and the advisor in background goroutines
	go func() {
		if err := usageReconciler.Run(ctx); err != nil && err != context.Canceled {
			setupLog.Error(err, "usage reconciler stopped with error")
		}
	}()
	setupLog.Info("started usage reconciler")

	go func() {
		if err := planReconciler.Run(ctx); err != nil && err != context.Canceled {
			setupLog.Error(err, "plan reconciler stopped with error")
		}
	}()
	setupLog.Info("started plan reconciler")

	go func() {
		if err := advisor.Run(ctx); err != nil && err != context.Canceled {
			setupLog.Error(err, "advisor reconciler stopped with error")
		}
	}()
	setupLog.Info("started advisor reconciler")

	// Create credential monitor for AWS health checks
	// The monitor runs background checks on a timer instead of on every
	// healthz probe, keeping readiness cheap for the kubelet
	validator := aws.NewAccountValidator(awsClient)
	credMonitor := aws.NewCredentialMonitor(validator, cfg.AWSAccounts, cfg.GetAccountValidationInterval())
	credMonitor.Start()
	setupLog.Info("started AWS credential monitor",
		"accounts", len(cfg.AWSAccounts),
		"checkInterval", cfg.GetAccountValidationInterval().String())

	// Setup metrics server
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.HandlerFor(metricsRegistry, promhttp.HandlerOpts{}))

	var metricsServer *http.Server
	if secureMetrics && len(metricsCertPath) > 0 {
		tlsConfig := &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
		for _, opt := range tlsOpts {
			opt(tlsConfig)
		}

		certFile := filepath.Join(metricsCertPath, metricsCertName)
		keyFile := filepath.Join(metricsCertPath, metricsCertKey)
		metricsServer = &http.Server{
			Addr:      metricsAddr,
			Handler:   metricsMux,
			TLSConfig: tlsConfig,
		}
		go func() {
			setupLog.Info("starting metrics server with TLS", "address", metricsAddr)
			if err := metricsServer.ListenAndServeTLS(certFile, keyFile); err != nil && err != http.ErrServerClosed {
				setupLog.Error(err, "metrics server stopped with error")
			}
		}()
	} else {
		if secureMetrics {
			setupLog.Info("TLS requested but no certificates provided, using HTTP instead")
		}
		metricsServer = &http.Server{
			Addr:    metricsAddr,
			Handler: metricsMux,
		}
		go func() {
			setupLog.Info("starting metrics server", "address", metricsAddr)
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				setupLog.Error(err, "metrics server stopped with error")
			}
		}()
	}
	setupLog.Info("metrics server ready")

	// Setup health check server
	// Readiness uses the credential monitor's cached status instead of
	// making AWS API calls per probe
	awsHealthChecker := aws.NewHealthChecker(credMonitor)
	healthHandler := &healthz.Handler{
		Checks: map[string]healthz.Checker{
			"healthz": healthz.Ping,
			"readyz":  awsHealthChecker.Check,
		},
	}

	healthMux := http.NewServeMux()
	healthMux.Handle("/healthz", http.StripPrefix("/healthz", healthHandler))
	healthMux.Handle("/readyz", http.StripPrefix("/readyz", healthHandler))

	healthServer := &http.Server{
		Addr:    probeAddr,
		Handler: healthMux,
	}

	go func() {
		setupLog.Info("starting health server", "address", probeAddr)
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			setupLog.Error(err, "health server stopped with error")
		}
	}()
	setupLog.Info("health server ready")

	// Wait for shutdown signal
	<-ctx.Done()
	setupLog.Info("shutting down")

	credMonitor.Stop()
	covenantMetrics.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		setupLog.Error(err, "metrics server shutdown failed")
	}
	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		setupLog.Error(err, "health server shutdown failed")
	}
	return nil
}

// coverage:ignore - main entrypoint, tested via E2E
func main() {
	var metricsAddr string
	var metricsCertPath, metricsCertName, metricsCertKey string
	var probeAddr string
	var secureMetrics bool
	var enableHTTP2 bool
	var configFile string
	var tlsOpts []func(*tls.Config)
	flag.StringVar(&configFile, "config", "/etc/covenant/config.yaml",
		"Path to the advisor configuration file. Can be overridden with COVENANT_CONFIG_PATH environment variable.")
	flag.StringVar(&metricsAddr, "metrics-bind-address", ":8080",
		"The address the metrics endpoint binds to.")
	flag.StringVar(&probeAddr, "health-probe-bind-address", ":8081", "The address the probe endpoint binds to.")
	flag.BoolVar(&secureMetrics, "metrics-secure", false,
		"If set, the metrics endpoint is served via HTTPS using the certificates under --metrics-cert-path.")
	flag.StringVar(&metricsCertPath, "metrics-cert-path", "",
		"The directory that contains the metrics server certificate.")
	flag.StringVar(&metricsCertName, "metrics-cert-name", "tls.crt", "The name of the metrics server certificate file.")
	flag.StringVar(&metricsCertKey, "metrics-cert-key", "tls.key", "The name of the metrics server key file.")
	flag.BoolVar(&enableHTTP2, "enable-http2", false,
		"If set, HTTP/2 will be enabled for the metrics server")
	opts := zap.Options{
		Development: true,
	}
	opts.BindFlags(flag.CommandLine)
	flag.Parse()

	ctrl.SetLogger(zap.New(zap.UseFlagOptions(&opts)))

	// Allow environment variable to override config file path
	if envConfigPath := os.Getenv("COVENANT_CONFIG_PATH"); envConfigPath != "" {
		configFile = envConfigPath
	}

	// Load advisor configuration
	// If the config file doesn't exist, use empty config with defaults (for E2E tests)
	cfg, err := config.Load(configFile)
	if err != nil {
		if _, statErr := os.Stat(configFile); os.IsNotExist(statErr) {
			setupLog.Info("config file not found, using defaults", "config-file", configFile)
			cfg = &config.Config{}
		} else {
			setupLog.Error(err, "failed to load configuration", "config-file", configFile)
			os.Exit(1)
		}
	} else {
		setupLog.Info("loaded configuration",
			"accounts", len(cfg.AWSAccounts),
			"default-region", cfg.DefaultRegion,
			"log-level", cfg.LogLevel)
	}

	// HTTP/2 stays disabled unless explicitly requested because of its
	// rapid stream reset exposure (CVE-2023-44487)
	if !enableHTTP2 {
		tlsOpts = append(tlsOpts, func(c *tls.Config) {
			c.NextProtos = []string{"http/1.1"}
		})
	}

	if err := run(cfg, metricsAddr, probeAddr, secureMetrics,
		metricsCertPath, metricsCertName, metricsCertKey, tlsOpts); err != nil {
		setupLog.Error(err, "advisor exited with error")
		os.Exit(1)
	}
}
