package main

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/simprobe/simprobe/internal/config"
	"github.com/simprobe/simprobe/internal/doctor"
	"github.com/spf13/cobra"
)

const bugreportLogLimit = 3

var (
	bugreportNowFn     = func() time.Time { return time.Now().UTC() }
	bugreportHomeDirFn = os.UserHomeDir
	bugreportGetwdFn   = os.Getwd
)

func newBugreportCommand(cfg *config.Config, logger *log.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "bugreport",
		Short: "Collect a diagnostic bundle for debugging",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if logger != nil {
				logger.With("command", "bugreport").Info("collecting diagnostic bundle")
			}
			return runBugReport(cfg, cmd.OutOrStdout())
		},
	}
}

func runBugReport(cfg *config.Config, out io.Writer) error {
	homeDir, err := bugreportHomeDirFn()
	if err != nil {
		return fmt.Errorf("resolve home directory: %w", err)
	}
	homeDir = filepath.Clean(homeDir)
	if strings.TrimSpace(homeDir) == "" || homeDir == "." {
		return fmt.Errorf("home directory is not valid")
	}

	cwd, err := bugreportGetwdFn()
	if err != nil {
		return fmt.Errorf("resolve current directory: %w", err)
	}

	timestamp := bugreportNowFn().Format("20060102-150405")
	bundlePath := filepath.Join(filepath.Clean(cwd), fmt.Sprintf(".simprobe-bugreport-%s.tar.gz", timestamp))

	stagingDir, err := os.MkdirTemp("", "simprobe-bugreport-*")
	if err != nil {
		return fmt.Errorf("create staging directory: %w", err)
	}
	defer func() {
		_ = os.RemoveAll(stagingDir)
	}()

	warnings := collectBugreportArtifacts(cfg, homeDir, cwd, stagingDir)
	if err := writeBugreportREADME(stagingDir, warnings); err != nil {
		return err
	}
	if err := archiveBugreport(stagingDir, bundlePath); err != nil {
		return err
	}

	if out == nil {
		out = os.Stdout
	}
	if _, err := fmt.Fprintf(out, "Bug report written to: %s. Share for debugging.\n", bundlePath); err != nil {
		return fmt.Errorf("write bugreport output: %w", err)
	}
	return nil
}

func collectBugreportArtifacts(cfg *config.Config, homeDir, cwd, stagingDir string) []string {
	warnings := make([]string, 0)

	warnings = append(warnings, copyRecentLogs(homeDir, stagingDir, bugreportLogLimit)...)
	warnings = append(warnings, copyConfigFiles(homeDir, cwd, stagingDir)...)

	if err := writeVersionFile(stagingDir); err != nil {
		warnings = append(warnings, err.Error())
	}
	if err := writeDoctorReport(cfg, stagingDir); err != nil {
		warnings = append(warnings, err.Error())
	}
	return warnings
}

func copyRecentLogs(homeDir, stagingDir string, limit int) []string {
	logsDir := filepath.Join(homeDir, ".simprobe", "logs")
	files, err := newestFiles(logsDir, limit)
	if err != nil {
		return []string{fmt.Sprintf("unable to read logs directory: %v", err)}
	}

	destDir := filepath.Join(stagingDir, "logs")
	if err := os.MkdirAll(destDir, 0o750); err != nil {
		return []string{fmt.Sprintf("unable to create logs staging directory: %v", err)}
	}

	warnings := make([]string, 0)
	for _, file := range files {
		// #nosec G304 -- source path comes from deterministic ~/.simprobe/logs enumeration.
		data, readErr := os.ReadFile(file.path)
		if readErr != nil {
			warnings = append(warnings, fmt.Sprintf("unable to read log %s: %v", file.path, readErr))
			continue
		}
		dstPath := filepath.Join(destDir, filepath.Base(file.path))
		if writeErr := os.WriteFile(dstPath, data, 0o600); writeErr != nil {
			warnings = append(warnings, fmt.Sprintf("unable to stage log %s: %v", file.path, writeErr))
		}
	}
	return warnings
}

func copyConfigFiles(homeDir, cwd, stagingDir string) []string {
	warnings := make([]string, 0)
	sources := map[string]string{
		"config-home.toml":    filepath.Join(homeDir, ".simprobe", "config.toml"),
		"config-project.toml": filepath.Join(cwd, ".simprobe", "config.toml"),
	}
	for name, src := range sources {
		// #nosec G304 -- config paths are deterministic under home and working directories.
		data, err := os.ReadFile(src)
		if err != nil {
			if !os.IsNotExist(err) {
				warnings = append(warnings, fmt.Sprintf("unable to read config %s: %v", src, err))
			}
			continue
		}
		if err := os.WriteFile(filepath.Join(stagingDir, name), data, 0o600); err != nil {
			warnings = append(warnings, fmt.Sprintf("unable to stage config %s: %v", src, err))
		}
	}
	return warnings
}

func writeVersionFile(stagingDir string) error {
	content := fmt.Sprintf("simprobe version: %s\n", strings.TrimSpace(Version))
	if err := os.WriteFile(filepath.Join(stagingDir, "version.txt"), []byte(content), 0o600); err != nil {
		return fmt.Errorf("write version.txt: %w", err)
	}
	return nil
}

func writeDoctorReport(cfg *config.Config, stagingDir string) error {
	builder := strings.Builder{}
	if cfg == nil {
		builder.WriteString("config unavailable\n")
	} else {
		checker, err := doctor.NewChecker(cfg.ServerPath)
		if err != nil {
			builder.WriteString(fmt.Sprintf("doctor unavailable: %v\n", err))
		} else {
			for _, check := range checker.Run().Checks {
				state := "pass"
				if !check.Passed {
					state = "fail"
				}
				builder.WriteString(fmt.Sprintf("%s: %s (%s)\n", state, check.Name, check.Detail))
			}
		}
	}
	if err := os.WriteFile(filepath.Join(stagingDir, "doctor.txt"), []byte(builder.String()), 0o600); err != nil {
		return fmt.Errorf("write doctor.txt: %w", err)
	}
	return nil
}

func writeBugreportREADME(stagingDir string, warnings []string) error {
	builder := strings.Builder{}
	builder.WriteString("simprobe Bug Report\n")
	builder.WriteString("===================\n\n")
	builder.WriteString(fmt.Sprintf("Generated: %s\n", bugreportNowFn().Format(time.RFC3339)))
	builder.WriteString(fmt.Sprintf("Version: %s\n\n", Version))
	builder.WriteString("Included artifacts:\n")
	builder.WriteString("- logs/ (up to last 3 run logs)\n")
	builder.WriteString("- config-home.toml / config-project.toml (when present)\n")
	builder.WriteString("- version.txt\n")
	builder.WriteString("- doctor.txt\n")
	if len(warnings) > 0 {
		builder.WriteString("\nWarnings:\n")
		for _, warning := range warnings {
			builder.WriteString("- " + warning + "\n")
		}
	}

	if err := os.WriteFile(filepath.Join(stagingDir, "README.txt"), []byte(builder.String()), 0o600); err != nil {
		return fmt.Errorf("write README.txt: %w", err)
	}
	return nil
}

func archiveBugreport(stagingDir, destination string) error {
	// #nosec G304 -- destination is generated in current working directory with deterministic file name.
	archiveFile, err := os.OpenFile(destination, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("create archive %s: %w", destination, err)
	}
	defer func() {
		_ = archiveFile.Close()
	}()

	gzipWriter := gzip.NewWriter(archiveFile)
	defer func() {
		_ = gzipWriter.Close()
	}()

	tarWriter := tar.NewWriter(gzipWriter)
	defer func() {
		_ = tarWriter.Close()
	}()

	walkErr := filepath.WalkDir(stagingDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("read file info for %s: %w", path, err)
		}
		relPath, err := filepath.Rel(stagingDir, path)
		if err != nil {
			return fmt.Errorf("compute archive path for %s: %w", path, err)
		}

		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return fmt.Errorf("create tar header for %s: %w", path, err)
		}
		header.Name = filepath.ToSlash(relPath)
		if err := tarWriter.WriteHeader(header); err != nil {
			return fmt.Errorf("write tar header for %s: %w", path, err)
		}

		// #nosec G304 -- walk paths originate from controlled staging directory.
		file, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open %s for archive: %w", path, err)
		}
		if _, err := io.Copy(tarWriter, file); err != nil {
			_ = file.Close()
			return fmt.Errorf("copy %s into archive: %w", path, err)
		}
		return file.Close()
	})
	if walkErr != nil {
		return fmt.Errorf("archive bugreport: %w", walkErr)
	}
	return nil
}

type datedFile struct {
	path    string
	modTime time.Time
}

func newestFiles(dir string, limit int) ([]datedFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	files := make([]datedFile, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, datedFile{
			path:    filepath.Join(dir, entry.Name()),
			modTime: info.ModTime(),
		})
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].modTime.After(files[j].modTime)
	})
	if limit > 0 && len(files) > limit {
		files = files[:limit]
	}
	return files, nil
}
