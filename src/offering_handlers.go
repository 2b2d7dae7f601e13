package main

import (
	"errors"
	"log"
	"net/http"
	"time"

	"signup/src/config"
	"signup/src/db"
	"signup/src/models"

	"github.com/gin-gonic/gin"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// offeringRoutes exposes the public catalog. No auth: prices and slots are
// what the signup page renders before login.
func offeringRoutes(g *gin.Engine) *gin.RouterGroup {
	apiv1 := apiv1Group(g)
	apiv1.
		GET("/programs", func(ctx *gin.Context) {
			var programs []models.Program
			gdb := db.GetDb()
			err := gdb.
				Model(&models.Program{}).
				Order("created_at DESC").
				Limit(100).
				Find(&programs).
				Error
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": programs, "count": len(programs)})
		}).
		GET("/programs/:slug", func(ctx *gin.Context) {
			slugParam := ctx.Params.ByName("slug")
			var program models.Program
			gdb := db.GetDb()
			if err := gdb.Where(&models.Program{Slug: slugParam}).First(&program).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					ctx.Status(http.StatusNotFound)
					return
				}
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": program})
		}).
		GET("/events", func(ctx *gin.Context) {
			var events []models.Event
			gdb := db.GetDb()
			err := gdb.
				Model(&models.Event{}).
				Order("date_time ASC").
				Limit(100).
				Find(&events).
				Error
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": events, "count": len(events)})
		}).
		GET("/events/:slug", func(ctx *gin.Context) {
			slugParam := ctx.Params.ByName("slug")
			var event models.Event
			gdb := db.GetDb()
			if err := gdb.Where(&models.Event{Slug: slugParam}).First(&event).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					ctx.Status(http.StatusNotFound)
					return
				}
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": event})
		})
	return apiv1
}

type createProgramRequestBody struct {
	Title             string  `json:"title" binding:"required"`
	Currency          string  `json:"currency" binding:"omitempty,len=3"`
	FullPrice         int64   `json:"full_price" binding:"gte=0"`
	ClassRepDiscount  int64   `json:"class_rep_discount" binding:"gte=0"`
	EarlyBirdDiscount int64   `json:"early_bird_discount" binding:"gte=0"`
	EarlyBirdDeadline *string `json:"early_bird_deadline,omitempty"`
	ClassRepLimit     uint    `json:"class_rep_limit"`
	IsFree            bool    `json:"is_free"`
	Location          string  `json:"location,omitempty"`
	DateTime          *string `json:"date_time,omitempty"`
}

// offeringAdminHandlers registers catalog management for admin users.
func offeringAdminHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	admin := g.Group("/")
	admin.Use(func(ctx *gin.Context) {
		if ctx.GetString("role") != "admin" {
			ctx.AbortWithStatus(http.StatusForbidden)
			return
		}
	})
	admin.
		POST("/programs", func(ctx *gin.Context) {
			var body createProgramRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			deadline, err := parseDeadline(body.EarlyBirdDeadline)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			program := models.Program{
				Title:             body.Title,
				Slug:              slug.Make(body.Title),
				Currency:          body.Currency,
				FullPrice:         body.FullPrice,
				ClassRepDiscount:  body.ClassRepDiscount,
				EarlyBirdDiscount: body.EarlyBirdDiscount,
				EarlyBirdDeadline: deadline,
				ClassRepLimit:     body.ClassRepLimit,
				IsFree:            body.IsFree,
			}
			gdb := db.GetDb()
			if err := gdb.Create(&program).Error; err != nil {
				log.Printf("[programs] Error creating program: %s\n", err.Error())
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": program})
		}).
		POST("/events", func(ctx *gin.Context) {
			var body createProgramRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			deadline, err := parseDeadline(body.EarlyBirdDeadline)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			datetime, err := parseDeadline(body.DateTime)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			event := models.Event{
				Title:             body.Title,
				Slug:              slug.Make(body.Title),
				Location:          body.Location,
				DateTime:          datetime,
				Currency:          body.Currency,
				FullPrice:         body.FullPrice,
				ClassRepDiscount:  body.ClassRepDiscount,
				EarlyBirdDiscount: body.EarlyBirdDiscount,
				EarlyBirdDeadline: deadline,
				ClassRepLimit:     body.ClassRepLimit,
				IsFree:            body.IsFree,
			}
			gdb := db.GetDb()
			if err := gdb.Create(&event).Error; err != nil {
				log.Printf("[events] Error creating event: %s\n", err.Error())
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": event})
		})
	return g
}

func parseDeadline(value *string) (*time.Time, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	t, err := time.Parse(config.TIME_PARSE_FORMAT, *value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
