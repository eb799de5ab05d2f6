package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"hubScope/internal/config"
	"hubScope/internal/hub"
	"hubScope/internal/model"
	"hubScope/internal/storage"
)

func runDecode(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadDecode(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.In == "" {
		return fmt.Errorf("input path is required")
	}
	if cfg.Out == "" {
		return fmt.Errorf("output path is required")
	}
	if cfg.Errors == "" {
		return fmt.Errorf("errors path is required")
	}

	decoder, err := hub.NewDecoder(hub.DecoderConfig{
		HubAddress:     cfg.HubAddress,
		ManagerAddress: cfg.ManagerAddress,
	})
	if err != nil {
		return err
	}

	inputFile, err := os.Open(cfg.In)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer inputFile.Close()

	outWriter, err := storage.NewWriter(cfg.Out, false)
	if err != nil {
		return err
	}
	defer outWriter.Close()

	errWriter, err := storage.NewWriter(cfg.Errors, false)
	if err != nil {
		return err
	}
	defer errWriter.Close()

	logger.Info("decode start",
		zap.String("in", cfg.In),
		zap.String("out", cfg.Out),
		zap.String("errors", cfg.Errors),
		zap.String("hub", cfg.HubAddress),
		zap.String("manager", cfg.ManagerAddress),
	)

	scanner := bufio.NewScanner(inputFile)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	var total, decoded, skipped, removed int
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		total++

		var record model.LogRecord
		if err := json.Unmarshal(line, &record); err != nil {
			writeDecodeError(errWriter, logger, model.DecodeError{Error: err.Error()})
			continue
		}
		if record.Removed {
			removed++
			continue
		}
		if len(record.Topics) == 0 {
			writeDecodeError(errWriter, logger, model.NewDecodeError(record, fmt.Errorf("missing topic0")))
			continue
		}
		if !decoder.CanDecode(record) {
			skipped++
			continue
		}

		event, err := decoder.Decode(record)
		if err != nil {
			writeDecodeError(errWriter, logger, model.NewDecodeError(record, err))
			continue
		}

		if err := outWriter.Write(event); err != nil {
			return err
		}
		decoded++
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan input: %w", err)
	}

	logger.Info("decode complete",
		zap.Int("total", total),
		zap.Int("decoded", decoded),
		zap.Int("skipped", skipped),
		zap.Int("removed", removed),
		zap.Int("failed", errWriter.Lines()),
	)

	return nil
}

func writeDecodeError(writer *storage.Writer, logger *zap.Logger, errRecord model.DecodeError) {
	if err := writer.Write(errRecord); err != nil {
		logger.Warn("write decode error", zap.Error(err))
	}
}
