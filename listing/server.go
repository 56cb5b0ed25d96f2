// Copyright 2025 The Karobar Authors
// SPDX-License-Identifier: Apache-2.0

package listing

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Server exposes the intake pipeline over HTTP.
type Server struct {
	service *Service
	repo    ListingRepository
}

// NewServer creates the HTTP surface for the submission service.
func NewServer(service *Service, repo ListingRepository) *Server {
	return &Server{
		service: service,
		repo:    repo,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.Default()

	r.POST("/api/listings", s.submitListing)
	r.POST("/api/listings/check", s.checkDuplicates)
	r.GET("/api/listings/recent", s.getRecent)
	r.GET("/api/listings/progress", s.getProgress)

	return r
}

// Run serves on the given address.
func (s *Server) Run(addr string) error {
	return s.Router().Run(addr)
}

func (s *Server) submitListing(ctx *gin.Context) {
	var sub Submission
	if err := ctx.BindJSON(&sub); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	if err := ValidateSubmission(&sub); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	result, err := s.service.Submit(&sub)
	if err != nil {
		// Detail stays server-side; the caller gets a generic,
		// non-leaking message.
		log.Printf("Submission failed - %s", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "submission could not be processed"})

		return
	}

	if !result.Accepted {
		ctx.JSON(http.StatusConflict, result)

		return
	}

	ctx.JSON(http.StatusCreated, result)
}

func (s *Server) checkDuplicates(ctx *gin.Context) {
	var sub Submission
	if err := ctx.BindJSON(&sub); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	conflicts := s.service.CheckDuplicates(&sub)

	ctx.JSON(http.StatusOK, gin.H{"conflicts": conflicts})
}

const maxRecentListings = 100

func (s *Server) getRecent(ctx *gin.Context) {
	limit := 20
	if raw := ctx.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})

			return
		}

		limit = parsed
	}

	if limit > maxRecentListings {
		limit = maxRecentListings
	}

	listings, err := s.repo.ListRecent(limit)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, gin.H{"listings": listings})
}

func (s *Server) getProgress(ctx *gin.Context) {
	stats, err := s.repo.Progress()
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, stats)
}
