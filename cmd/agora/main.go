package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Decentr-net/logrus/sentry"

	"github.com/Decentr-net/agora/internal/backend/rest"
	"github.com/Decentr-net/agora/internal/entities"
	"github.com/Decentr-net/agora/internal/media"
	"github.com/Decentr-net/agora/internal/media/s3"
	"github.com/Decentr-net/agora/internal/service"
	"github.com/Decentr-net/agora/internal/service/impl"
	"github.com/Decentr-net/agora/internal/store"
)

// version is set on build.
var version = "dev" // nolint:gochecknoglobals

// nolint:lll,gochecknoglobals
var opts = struct {
	APIURL     string        `long:"api.url" env:"API_URL" default:"http://localhost:8080" description:"forum server url"`
	APITimeout time.Duration `long:"api.timeout" env:"API_TIMEOUT" default:"10s" description:"timeout for requests to forum server"`

	MediaS3Endpoint  string `long:"media.s3.endpoint" env:"MEDIA_S3_ENDPOINT" description:"s3 endpoint; images of deleted posts are removed through the forum server if it's empty"`
	MediaS3Region    string `long:"media.s3.region" env:"MEDIA_S3_REGION" description:"s3 region"`
	MediaS3AccessKey string `long:"media.s3.access_key" env:"MEDIA_S3_ACCESS_KEY" description:"s3 access key"`
	MediaS3SecretKey string `long:"media.s3.secret_key" env:"MEDIA_S3_SECRET_KEY" description:"s3 secret key"`
	MediaS3Bucket    string `long:"media.s3.bucket" env:"MEDIA_S3_BUCKET" default:"images" description:"s3 bucket with uploaded images"`
	MediaS3Insecure  bool   `long:"media.s3.insecure" env:"MEDIA_S3_INSECURE" description:"use plain http for s3"`

	Debug bool `long:"debug" env:"DEBUG" description:"dump received records"`

	LogLevel  string `long:"log.level" env:"LOG_LEVEL" default:"warning" description:"Log level" choice:"debug" choice:"info" choice:"warning" choice:"error"`
	SentryDSN string `long:"sentry.dsn" env:"SENTRY_DSN" description:"sentry dsn"`
}{}

var errTerminated = errors.New("terminated")

func main() {
	parser := flags.NewParser(&opts, flags.Default)
	parser.ShortDescription = "Agora"
	parser.LongDescription = "Agora is a command line client of the forum"

	for _, c := range commands() {
		if _, err := parser.AddCommand(c.name, c.short, c.long, c.data); err != nil {
			logrus.WithError(err).Fatalf("failed to register %s command", c.name)
		}
	}

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		if errors.Is(err, errTerminated) {
			os.Exit(130)
		}
		os.Exit(1)
	}
}

// app holds dependencies shared by commands.
type app struct {
	b        *rest.Client
	posts    *store.Registry[entities.Post]
	comments *store.Registry[entities.Comment]
	s        service.Service
}

func setup() {
	lvl, _ := logrus.ParseLevel(opts.LogLevel) // err will always be nil
	logrus.SetLevel(lvl)
	logrus.SetOutput(os.Stderr)

	logrus.Debugf("%+v", opts)

	if opts.SentryDSN != "" {
		hook, err := sentry.NewHook(sentry.Options{
			Dsn:              opts.SentryDSN,
			AttachStacktrace: true,
			Release:          version,
			ServerName:       "agora",
		}, logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel)

		if err != nil {
			logrus.WithError(err).Fatal("failed to init sentry")
		}

		logrus.AddHook(hook)
	} else {
		logrus.Debug("empty sentry dsn, skip sentry initialization")
	}
}

func mustGetApp() *app {
	b, err := rest.New(opts.APIURL, opts.APITimeout)
	if err != nil {
		logrus.WithError(err).Fatal("failed to create forum client")
	}

	a := &app{
		b:        b,
		posts:    store.NewRegistry[entities.Post](),
		comments: store.NewRegistry[entities.Comment](),
	}
	a.s = impl.New(b, a.posts, a.comments, notifier{}, mustGetReleaser(b))

	return a
}

func mustGetReleaser(fallback media.Releaser) media.Releaser {
	if opts.MediaS3Endpoint == "" {
		return fallback
	}

	r, err := s3.New(s3.Options{
		Endpoint:  opts.MediaS3Endpoint,
		AccessKey: opts.MediaS3AccessKey,
		SecretKey: opts.MediaS3SecretKey,
		Region:    opts.MediaS3Region,
		Bucket:    opts.MediaS3Bucket,
		Insecure:  opts.MediaS3Insecure,
	})
	if err != nil {
		logrus.WithError(err).Fatal("failed to create s3 client")
	}

	return r
}

// run executes f until it's done or the process is signaled.
func run(f func(ctx context.Context, a *app) error) error {
	setup()
	a := mustGetApp()
	defer a.s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gr, _ := errgroup.WithContext(ctx)
	gr.Go(func() error {
		defer cancel()

		return f(ctx, a)
	})
	gr.Go(func() error {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
		defer signal.Stop(sigs)

		select {
		case s := <-sigs:
			logrus.Infof("terminating by %s signal", s)
			cancel()

			return errTerminated
		case <-ctx.Done():
			return nil
		}
	})

	if err := gr.Wait(); err != nil {
		logrus.WithError(err).Debug("command failed")

		return err
	}

	return nil
}

type notifier struct{}

func (notifier) Success(msg string) {
	fmt.Fprintln(os.Stderr, msg) // nolint:errcheck
}

func (notifier) Error(msg string) {
	logrus.Warn(msg)
}
