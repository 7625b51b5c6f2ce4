// qsimd is the simulator daemon: it serves the framed instruction
// protocol on a TCP endpoint and keeps the register session alive
// across client connections.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"

	"github.com/quforge/qusim/server"
)

func main() {
	addr := flag.String("addr", "", "listen address (host:port)")
	backend := flag.String("backend", "", "compute backend: cpu or parallel")
	verbose := flag.Bool("verbose", false, "debug logging and instruction dumps")
	cfgFile := flag.String("config", "", "config file path")
	flag.Parse()

	if err := loadConfig(*cfgFile); err != nil {
		log.Fatal("config load failed", "err", err)
	}
	// flags win over config file and environment
	if *addr != "" {
		viper.Set("addr", *addr)
	}
	if *backend != "" {
		viper.Set("backend", *backend)
	}
	if *verbose {
		viper.Set("verbose", true)
	}

	if viper.GetBool("verbose") {
		log.SetLevel(log.DebugLevel)
	}
	log.SetReportTimestamp(true)

	srv, err := server.New(server.Config{
		Addr:    viper.GetString("addr"),
		Backend: viper.GetString("backend"),
		Verbose: viper.GetBool("verbose"),
	})
	if err != nil {
		log.Fatal("server build failed", "err", err)
	}
	if err := srv.Start(); err != nil {
		log.Fatal("server start failed", "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info("shutting down")
	if err := srv.Close(); err != nil {
		log.Error("shutdown error", "err", err)
	}
}

func loadConfig(path string) error {
	viper.SetDefault("addr", server.DefaultAddr)
	viper.SetDefault("backend", "")
	viper.SetDefault("verbose", false)

	viper.SetEnvPrefix("qsim")
	viper.AutomaticEnv()

	if path != "" {
		viper.SetConfigFile(path)
		return viper.ReadInConfig()
	}
	viper.SetConfigName("qsimd")
	viper.AddConfigPath("/etc/qsimd")
	viper.AddConfigPath("$HOME/.config/qsimd")
	viper.AddConfigPath(".")
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return err
	}
	return nil
}
