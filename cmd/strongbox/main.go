package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/leonmak/strongbox/internal/artifact"
	"github.com/leonmak/strongbox/internal/client"
	"github.com/leonmak/strongbox/internal/config"
	"github.com/leonmak/strongbox/internal/index"
	"github.com/leonmak/strongbox/internal/log"
	"github.com/leonmak/strongbox/internal/repo"
	"github.com/leonmak/strongbox/internal/server"
	"github.com/leonmak/strongbox/internal/watcher"
	"github.com/spf13/cobra"
)

var (
	Version   string = "dev"
	buildTime string = "unknown"
	commit    string = "unknown"

	configFile string
	listenAddr string
	storageDir string
	debug      bool
	noWatch    bool

	searchRepository string
	searchGroupID    string
	searchArtifactID string
	searchVersion    string
	searchJSON       bool

	indexRepository string
	indexPath       string

	deleteRepository string
	deleteGroupID    string
	deleteArtifactID string
	deleteVersion    string
	deleteClassifier string
	deletePackaging  string
)

var rootCmd = &cobra.Command{
	Use:   "strongbox",
	Short: "Artifact repository indexing service",
	Long:  "Indexes filesystem-backed artifact repositories and serves coordinate and free-text search",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the indexing service",
	RunE:  runServe,
}

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed artifacts",
	Long:  "Free-text search with a query argument, or coordinate search with -g/-a (and optionally -v)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSearch,
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage repository indexes",
}

var indexGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Trigger a full reindex (async)",
	RunE:  runIndexGenerate,
}

var indexSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Incremental sync - add new/updated artifacts, retract deleted ones",
	RunE:  runIndexSync,
}

var indexStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show per-repository index statistics",
	RunE:  runIndexStatus,
}

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Retract artifacts from a repository index",
	Long:  "Empty coordinate fields act as wildcards: deleting with only -g and -a retracts every version",
	RunE:  runDelete,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		log.Infof("strongbox version %s", Version)
		log.Infof("  Build time: %s", buildTime)
		log.Infof("  Commit: %s", commit)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (default: ~/.config/strongbox/config.toml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "HTTP listen address")
	serveCmd.Flags().StringVar(&storageDir, "storage", "", "index storage directory")
	serveCmd.Flags().BoolVar(&noWatch, "no-watch", false, "disable automatic repository watching")

	searchCmd.Flags().StringVar(&searchRepository, "repository", "", "target repository id (free-text searches all searchable repositories when empty)")
	searchCmd.Flags().StringVarP(&searchGroupID, "group", "g", "", "group id for coordinate search")
	searchCmd.Flags().StringVarP(&searchArtifactID, "artifact", "a", "", "artifact id for coordinate search")
	searchCmd.Flags().StringVarP(&searchVersion, "version", "v", "", "version filter for coordinate search")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results in JSON format")

	indexGenerateCmd.Flags().StringVar(&indexRepository, "repository", "", "repository id to reindex")
	indexGenerateCmd.Flags().StringVar(&indexPath, "path", "", "subtree to scan (whole repository when empty)")
	indexSyncCmd.Flags().StringVar(&indexRepository, "repository", "", "repository id to sync")

	deleteCmd.Flags().StringVar(&deleteRepository, "repository", "", "repository id")
	deleteCmd.Flags().StringVarP(&deleteGroupID, "group", "g", "", "group id")
	deleteCmd.Flags().StringVarP(&deleteArtifactID, "artifact", "a", "", "artifact id")
	deleteCmd.Flags().StringVarP(&deleteVersion, "version", "v", "", "version")
	deleteCmd.Flags().StringVar(&deleteClassifier, "classifier", "", "classifier")
	deleteCmd.Flags().StringVar(&deletePackaging, "packaging", "", "packaging")

	indexCmd.AddCommand(indexGenerateCmd)
	indexCmd.AddCommand(indexSyncCmd)
	indexCmd.AddCommand(indexStatusCmd)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(versionCmd)
}

func buildConfig() *config.Config {
	cfgPath := configFile
	if cfgPath == "" {
		cfgPath = config.GetDefaultConfigPath()
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if listenAddr != "" {
		cfg.ListenAddr = listenAddr
	}
	if storageDir != "" {
		cfg.StorageDir = storageDir
	}

	return cfg
}

func runServe(cmd *cobra.Command, args []string) error {
	log.SetDebug(debug)
	cfg := buildConfig()

	manager := repo.NewManager()
	defer manager.CloseAll(false)

	for _, repository := range cfg.Repositories {
		ri, err := manager.Open(index.Options{
			ID:                repository.ID,
			RepositoryBaseDir: repository.BaseDir,
			IndexDir:          cfg.IndexDirFor(repository),
			Searchable:        repository.Searchable,
			TrustExisting:     repository.TrustExisting,
		})
		if err != nil {
			return err
		}

		count, err := ri.DocCount()
		if err != nil {
			return err
		}
		if count == 0 {
			log.Infof("index for %s is empty, building initial index...", repository.ID)
			go func(ri *repo.RepositoryIndexer) {
				result, err := ri.Index("")
				if err != nil {
					log.Errorf("initial index build for %s failed: %v", ri.ID(), err)
					return
				}
				log.Infof("initial index build for %s complete: %d files, %d errors",
					ri.ID(), result.TotalFiles, len(result.Errors))
			}(ri)
		}
	}

	w, err := watcher.New(manager)
	if err != nil {
		return err
	}

	if cfg.Watch && !noWatch {
		if err := w.Start(); err != nil {
			log.Errorf("failed to start watcher: %v", err)
			log.Infof("continuing without repository watching")
		}
	}

	httpServer := server.NewHTTP(cfg.ListenAddr, manager, w)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- httpServer.Start()
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return err
		}
	case sig := <-sigChan:
		log.Infof("received signal %v, shutting down", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Errorf("HTTP shutdown error: %v", err)
	}

	if w.IsRunning() {
		if err := w.Stop(); err != nil {
			log.Errorf("watcher stop error: %v", err)
		}
	}

	return nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	params := client.SearchParams{
		GroupID:    searchGroupID,
		ArtifactID: searchArtifactID,
		Version:    searchVersion,
		Repository: searchRepository,
	}
	if len(args) > 0 {
		params.Query = args[0]
	}

	if params.Query == "" && params.GroupID == "" && params.ArtifactID == "" {
		return fmt.Errorf("either a query argument or -g/-a flags are required")
	}

	result, err := newClient().Search(params)
	if err != nil {
		return err
	}

	if searchJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	if result.Total == 0 {
		fmt.Println("no artifacts found")
		return nil
	}

	for _, a := range result.Artifacts {
		fmt.Println(a.String())
	}
	fmt.Printf("%d artifact(s)\n", result.Total)
	return nil
}

func runIndexGenerate(cmd *cobra.Command, args []string) error {
	if indexRepository == "" {
		return fmt.Errorf("--repository is required")
	}

	status, err := newClient().Reindex(indexRepository, indexPath)
	if err != nil {
		return err
	}
	fmt.Println(status)
	return nil
}

func runIndexSync(cmd *cobra.Command, args []string) error {
	if indexRepository == "" {
		return fmt.Errorf("--repository is required")
	}

	status, err := newClient().Sync(indexRepository)
	if err != nil {
		return err
	}
	fmt.Println(status)
	return nil
}

func runIndexStatus(cmd *cobra.Command, args []string) error {
	stats, err := newClient().Stats()
	if err != nil {
		return err
	}

	for _, s := range stats {
		fmt.Printf("%s: %d artifact(s); basedir: %s; searchable: %v\n",
			s.ID, s.Artifacts, s.BaseDir, s.Searchable)
	}
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	if deleteRepository == "" {
		return fmt.Errorf("--repository is required")
	}

	desc := artifact.ArtifactInfo{
		GroupID:    deleteGroupID,
		ArtifactID: deleteArtifactID,
		Version:    deleteVersion,
		Classifier: deleteClassifier,
		Packaging:  deletePackaging,
	}
	if desc.Empty() {
		return fmt.Errorf("at least one coordinate flag is required")
	}

	status, err := newClient().DeleteArtifacts(deleteRepository, []artifact.ArtifactInfo{desc})
	if err != nil {
		return err
	}
	fmt.Println(status)
	return nil
}

func newClient() *client.Client {
	return client.New(buildConfig().ListenAddr)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("%v", err)
	}
}
