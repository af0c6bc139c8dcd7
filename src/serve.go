package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"AirQuality/src/datasource/email"
	"AirQuality/src/datasource/file"
	"AirQuality/src/processor"
	"AirQuality/src/server"

	"github.com/robfig/cron"
	"github.com/spf13/cobra"
)

func newServeCmd(withApp appRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard and reload datasets when they change",
		RunE: withApp(func(cmd *cobra.Command, a *app) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		}),
	}
}

func (a *app) reload(data *processor.Dataset, reason string) {
	start := time.Now()
	if err := data.Reload(a.cfg.MeteoPath(), a.cfg.ContPath(), a.cfg.Encoding); err != nil {
		a.logger.Error(fmt.Sprintf("reload (%s): %v", reason, err))
		return
	}
	snap := data.Snapshot()
	a.logger.Info(fmt.Sprintf("reload (%s): %d meteo and %d cont observations in %v",
		reason, snap.Meteo.Nrow(), snap.Cont.Nrow(), time.Since(start)))
}

func (a *app) serve(ctx context.Context) error {
	data := &processor.Dataset{}
	a.reload(data, "startup")

	monitor, err := file.NewFileMonitor(a.cfg.DataDir, a.cfg.MeteoFile, a.cfg.ContFile)
	if err != nil {
		return fmt.Errorf("watch %s: %w", a.cfg.DataDir, err)
	}
	defer monitor.Close()
	go func() {
		err := monitor.Watch(ctx, func(path string) {
			a.reload(data, "changed "+path)
		})
		if err != nil {
			a.logger.Error("file monitor: " + err.Error())
		}
	}()

	go a.reopenOnHangup(ctx)

	c := cron.New()
	if interval := time.Duration(a.cfg.ReloadInterval); interval > 0 {
		if err := c.AddFunc("@every "+interval.String(), func() { a.reload(data, "scheduled") }); err != nil {
			return fmt.Errorf("schedule reload: %w", err)
		}
	}
	if err := c.AddFunc("@every 1m", func() {
		if err := a.logger.CheckRotate(a.cfg); err != nil {
			a.logger.Error("log rotation: " + err.Error())
		}
	}); err != nil {
		return fmt.Errorf("schedule log rotation: %w", err)
	}
	if a.cfg.EmailEnabled() {
		if err := a.scheduleMailbox(c); err != nil {
			return err
		}
	}
	c.Start()
	defer c.Stop()

	srv := server.New(a.cfg, a.proc, data, a.logger)
	a.logger.Info("dashboard listening on " + a.cfg.Addr)
	err = srv.Run(ctx)
	a.logger.Info("dashboard stopped")
	return err
}

// scheduleMailbox polls the mailbox; saved attachments land in the data
// directory, where the file monitor triggers the reload.
func (a *app) scheduleMailbox(c *cron.Cron) error {
	interval := time.Duration(a.cfg.Email.CheckInterval)
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	client := email.NewEmailClient(a.cfg.Email.Server, a.cfg.Email.Username, a.cfg.Email.Password)
	handler := email.NewAttachmentHandler(a.cfg.Email.TargetSubject, a.cfg.DataDir, a.logger)
	handler.Encoding = a.cfg.Encoding

	err := c.AddFunc("@every "+interval.String(), func() {
		latest, err := email.CheckAndProcessEmails(client, a.cfg.Email.TargetSubject, a.logger)
		if err != nil {
			a.logger.Error("mailbox: " + err.Error())
			return
		}
		if _, err := handler.Handle(latest); err != nil {
			a.logger.Error(fmt.Sprintf("mailbox attachment (UID %d): %v", latest.UID, err))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule mailbox check: %w", err)
	}
	a.logger.Info(fmt.Sprintf("checking mailbox every %v", interval))
	return nil
}

// reopenOnHangup reopens the log file on SIGHUP, for external rotation.
func (a *app) reopenOnHangup(ctx context.Context) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := a.logger.Reopen(a.cfg.LogName); err != nil {
				a.logger.Error("reopen log: " + err.Error())
				continue
			}
			a.logger.Info("log file reopened")
		}
	}
}
