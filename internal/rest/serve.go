// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package rest exposes structure tensor analysis over HTTP
package rest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/mlnoga/fibrelight/internal/gradient"
	"github.com/mlnoga/fibrelight/internal/logging"
	"github.com/mlnoga/fibrelight/internal/ops"
	"github.com/mlnoga/fibrelight/internal/ops/analyze"
	"github.com/mlnoga/fibrelight/internal/pool"
	"github.com/mlnoga/fibrelight/internal/spectrum"
)

// Server settings shared by all requests
type Server struct {
	Log        zerolog.Logger
	MaxThreads int  // concurrently analyzed images per request
	Verbose    bool // debug level in streamed request logs
}

// Creates the gin router with all API routes
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.logRequests)
	api := r.Group("/api")
	{
		v1 := api.Group("/v1")
		{
			v1.GET("/ping", getPing)
			v1.GET("/methods", getMethods)
			v1.POST("/analyze", s.postAnalyze)
		}
	}
	return r
}

// Listens and serves on the given address, e.g. :8080
func (s *Server) Serve(addr string) error {
	s.Log.Info().Msgf("Listening on %s", addr)
	return s.Router().Run(addr)
}

func (s *Server) logRequests(c *gin.Context) {
	c.Next()
	s.Log.Info().
		Str("method", c.Request.Method).
		Str("path", c.Request.URL.Path).
		Int("status", c.Writer.Status()).
		Msg("request")
}

func getPing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "pong",
	})
}

func getMethods(c *gin.Context) {
	methods := []string{}
	for _, m := range gradient.Methods() {
		methods = append(methods, m.String())
	}
	c.JSON(http.StatusOK, gin.H{
		"methods":  methods,
		"backends": spectrum.Backends(),
	})
}

func printArgs(logWriter io.Writer, prefix, suffix string, args interface{}) error {
	m, err := json.MarshalIndent(args, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintf(logWriter, "%s%s%s", prefix, string(m), suffix)
	return nil
}

type postAnalyzeArgs struct {
	FilePatterns []string           `json:"filePatterns" binding:"required"`
	Analyze      *analyze.OpAnalyze `json:"analyze"`
}

// Analyzes the files matching the patterns, streaming the log as plain text
func (s *Server) postAnalyze(c *gin.Context) {
	logWriter := c.Writer
	args := postAnalyzeArgs{Analyze: analyze.NewOpAnalyzeDefault()}
	if err := c.ShouldBindJSON(&args); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	header := logWriter.Header()
	header.Set("Content-Type", "text/plain")
	logWriter.WriteHeader(http.StatusOK)

	if err := printArgs(logWriter, "Arguments:\n", "\n", args); err != nil {
		fmt.Fprintf(logWriter, "Error printing arguments: %s\n", err.Error())
		return
	}

	ctx := ops.NewContext(logging.New(zerolog.SyncWriter(logWriter), logging.Level(s.Verbose)))
	ctx.RestrictPaths = true
	if s.MaxThreads > 0 {
		ctx.MaxThreads = s.MaxThreads
	}

	seq := ops.NewOpSequence(ops.NewOpLoadMany(args.FilePatterns), ops.NewOpForEach(args.Analyze))
	promises, err := seq.MakePromises(nil, ctx)
	if err == nil {
		_, err = ops.MaterializeAll(promises, ctx.MaxThreads, true)
		pool.Clear()
	}
	if err != nil {
		fmt.Fprintf(logWriter, "error: %s\n", err.Error())
	} else {
		fmt.Fprintf(logWriter, "Analyzed %d files.\n", len(promises))
	}
	logWriter.Flush()
}
