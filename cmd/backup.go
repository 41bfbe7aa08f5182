package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/AvaProtocol/aa-keyring/core/backup"
	"github.com/AvaProtocol/aa-keyring/pkg/logger"
	"github.com/AvaProtocol/aa-keyring/storage"
)

var (
	backupDir        string
	periodicInterval int
	dbPath           string
	restoreFile      string

	backupCmd = &cobra.Command{
		Use:   "backup",
		Short: "Backup the keyring database",
		Long: `Backup the keyring database to a directory.

The backup command can run either as a one-time backup or as a periodic backup process.
Backups are stored in the format: /backup_dir/yy-mm-dd-hh-mm-ss/keyring.backup
Backups contain wallet private keys and are only readable by their owner.
Use --db-path to specify the database directory to backup.
Use --dir to specify where to store the backups.
Use --interval to enable periodic backups (value in minutes, 0 means one-time backup).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBackup(cmd.Context(), dbPath, backupDir, periodicInterval)
		},
	}

	restoreCmd = &cobra.Command{
		Use:   "restore",
		Short: "Restore the keyring database from a backup",
		Long: `Restore the keyring database from a backup file.

Use --db-path to specify the database directory to restore to.
Use --file to specify the backup file to restore from.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRestore(cmd.Context(), dbPath, restoreFile)
		},
	}
)

func runBackup(ctx context.Context, dbPath, backupDir string, intervalMinutes int) error {
	log, err := logger.NewLogger("development")
	if err != nil {
		return err
	}

	db, err := storage.NewWithPath(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	service := backup.NewService(log, db, backupDir)
	if intervalMinutes == 0 {
		if err := os.MkdirAll(backupDir, 0700); err != nil {
			return fmt.Errorf("failed to create backup directory: %w", err)
		}
		backupFile, err := service.PerformBackup()
		if err != nil {
			return err
		}
		log.Info("backup completed", "file", backupFile)
		return nil
	}

	if _, err := service.PerformBackup(); err != nil {
		return fmt.Errorf("initial backup failed: %w", err)
	}
	if err := service.StartPeriodicBackup(time.Duration(intervalMinutes) * time.Minute); err != nil {
		return err
	}
	defer service.StopPeriodicBackup()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	return nil
}

func runRestore(ctx context.Context, dbPath, restoreFile string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := os.MkdirAll(dbPath, 0700); err != nil {
		return fmt.Errorf("failed to create DB directory: %w", err)
	}

	db, err := storage.NewWithPath(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := backup.Restore(ctx, db, restoreFile); err != nil {
		return err
	}
	fmt.Printf("Restore completed successfully from %s\n", restoreFile)
	return nil
}

func init() {
	backupCmd.Flags().StringVar(&dbPath, "db-path", "", "Path to the keyring database directory (required)")
	backupCmd.Flags().StringVar(&backupDir, "dir", "./backup", "Directory to store backups")
	backupCmd.Flags().IntVar(&periodicInterval, "interval", 0, "Run backups periodically (minutes, 0 for one-time)")
	backupCmd.MarkFlagRequired("db-path")
	rootCmd.AddCommand(backupCmd)

	restoreCmd.Flags().StringVar(&dbPath, "db-path", "", "Path to the keyring database directory (required)")
	restoreCmd.Flags().StringVar(&restoreFile, "file", "", "Backup file to restore from (required)")
	restoreCmd.MarkFlagRequired("db-path")
	restoreCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(restoreCmd)
}
