package main

import (
	"context"
	"crypto/tls"
	"io"
	"log"
	"log/syslog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/exfatt/films-server/api"
	"github.com/exfatt/films-server/catalog"
	"github.com/exfatt/films-server/catalog/search"
	"github.com/exfatt/films-server/config"
	"github.com/exfatt/films-server/database"
	"github.com/exfatt/films-server/database/model"
	"github.com/exfatt/films-server/postercache"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	switch cfg.Logfile {
	case "syslog":
		logw, err := syslog.New(syslog.LOG_NOTICE, "films-server")
		if err != nil {
			log.Fatalf("error opening syslog: %v", err)
		}
		log.SetOutput(logw)
	case "none":
		log.SetOutput(io.Discard)
	case "", "stdout":
	default:
		f, err := os.OpenFile(cfg.Logfile,
			os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			log.Fatalf("error opening file: %v", err)
		}
		defer f.Close()
		log.SetOutput(f)
	}
	log.SetFlags(0)

	ctx := context.Background()

	repo, err := database.New(&database.Options{
		Filename: cfg.Database.Filename,
	})
	if err != nil {
		log.Fatalf("database.New: %s", err)
	}
	repo.StartBackgroundJobs(ctx)

	if err := seed(ctx, repo, cfg); err != nil {
		log.Fatalf("seed: %s", err)
	}

	log.Printf("Building search index")
	idx, err := search.New()
	if err != nil {
		log.Fatalf("search.New: %s", err)
	}
	movies, err := repo.GetMovies(ctx)
	if err != nil {
		log.Fatalf("GetMovies: %s", err)
	}
	if err := idx.AddBatch(ctx, movies); err != nil {
		log.Fatalf("search index: %s", err)
	}

	posters := postercache.New(postercache.Options{
		Cachedir: cfg.Cachedir,
		Quality:  cfg.Poster.Quality,
	})

	r := mux.NewRouter()

	a := api.New(&api.Options{
		Repo:    repo,
		Search:  idx,
		Posters: posters,
	})
	a.RegisterHandlers(r)

	if cfg.Appdir != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(cfg.Appdir)))
	}

	server := HttpLog(r)

	if cfg.Listen.TLSCert != "" && cfg.Listen.TLSKey != "" {
		kpr, err := NewKeypairReloader(cfg.Listen.TLSCert, cfg.Listen.TLSKey)
		if err != nil {
			log.Fatalf("error loading keypair: %v", err)
		}

		srv := &http.Server{
			Addr:    cfg.Listen.Addr,
			Handler: server,
			TLSConfig: &tls.Config{
				MinVersion:     tls.VersionTLS13,
				GetCertificate: kpr.GetCertificateFunc(),
			},
		}
		log.Printf("Serving HTTPS on %s", cfg.Listen.Addr)
		log.Fatal(srv.ListenAndServeTLS("", ""))
	} else {
		log.Printf("Serving HTTP on %s", cfg.Listen.Addr)
		log.Fatal(http.ListenAndServe(cfg.Listen.Addr, server))
	}
}

// seed pre-populates an empty database with the catalog fixtures and makes
// sure an admin account exists.
func seed(ctx context.Context, repo database.Repository, cfg *config.Config) error {
	movies, err := repo.GetMovies(ctx)
	if err != nil {
		return err
	}
	if len(movies) == 0 {
		log.Printf("Empty database, seeding catalog fixtures")
		for _, m := range catalog.Fixtures() {
			if _, err := repo.InsertMovie(ctx, &m); err != nil {
				return err
			}
		}
	}

	if _, err := repo.GetUser(ctx, "admin"); err != nil {
		if _, err := repo.InsertUser(ctx, "admin", cfg.Admin.InitialPassword, model.RoleAdmin); err != nil {
			return err
		}
		if cfg.Admin.InitialPassword == "admin" {
			log.Printf("Created admin account with the default password, change it")
		}
	}
	return nil
}

type keypairReloader struct {
	certMu   sync.RWMutex
	cert     *tls.Certificate
	certPath string
	keyPath  string
}

// NewKeypairReloader creates a new keypair reloader that will reload the TLS
// certificate and key from the specified paths every 15 seconds. If the
// certificate cannot be loaded, it keeps the old certificate in use.
func NewKeypairReloader(certPath, keyPath string) (*keypairReloader, error) {
	result := &keypairReloader{
		certPath: certPath,
		keyPath:  keyPath,
	}
	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return nil, err
	}
	result.cert = &cert

	go func() {
		for {
			time.Sleep(15 * time.Second)
			if err := result.maybeReload(); err != nil {
				log.Printf("Keeping old TLS certificate because the new one could not be loaded: %v", err)
			}
		}
	}()
	return result, nil
}

func (kpr *keypairReloader) GetCertificateFunc() func(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	return func(clientHello *tls.ClientHelloInfo) (*tls.Certificate, error) {
		kpr.certMu.RLock()
		defer kpr.certMu.RUnlock()
		return kpr.cert, nil
	}
}

func (kpr *keypairReloader) maybeReload() error {
	newCert, err := tls.LoadX509KeyPair(kpr.certPath, kpr.keyPath)
	if err != nil {
		return err
	}
	kpr.certMu.Lock()
	defer kpr.certMu.Unlock()
	kpr.cert = &newCert
	return nil
}
