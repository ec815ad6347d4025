/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
)

func newLogger(cfg *Config, w io.Writer) zerolog.Logger {
	level := zerolog.WarnLevel
	if cfg.verbose {
		level = zerolog.DebugLevel
	}

	return zerolog.New(zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    true,
		TimeFormat: logDate,
	}).Level(level).With().Timestamp().Logger()
}

// logf only prints with --verbose.
func logf(cfg *Config, format string, args ...any) {
	cfg.logger.Info().Msgf(format, args...)
}

func debugf(cfg *Config, format string, args ...any) {
	cfg.logger.Debug().Msgf(format, args...)
}

func errorf(cfg *Config, err error, format string, args ...any) {
	cfg.logger.Error().Err(err).Msgf(format, args...)
}

func newPage(title, body string) string {
	var htmlBody strings.Builder

	htmlBody.WriteString(`<!DOCTYPE html><html lang="pt-BR"><head>`)
	htmlBody.WriteString(getFavicon())
	htmlBody.WriteString(`<style>`)
	htmlBody.WriteString(`html,body,a{display:block;height:100%;width:100%;text-decoration:none;color:inherit;cursor:auto;}</style>`)
	htmlBody.WriteString(fmt.Sprintf("<title>%s</title></head>", title))
	htmlBody.WriteString(fmt.Sprintf("<body><a href=\"/\">%s</a></body></html>", body))

	return htmlBody.String()
}
