package boot

import (
	"log"

	"signup/src/common"
	"signup/src/db"
	"signup/src/lib"
	"signup/src/models"

	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
)

func InitDb() *gorm.DB {
	db := db.GetDb()

	err := db.AutoMigrate(
		&models.User{},
		&models.Program{},
		&models.Event{},
		&models.Purchase{},
		&models.PromoCode{},
		&models.Donation{},
		&models.DonationTransaction{},
		&models.Notification{},
	)
	if err != nil {
		log.Fatalf("error migration: %s", err.Error())
	}

	return db
}

// InitScheduler registers the nightly sweep of stale pending purchases and
// starts the scheduler.
func InitScheduler() {
	sched, err := lib.GetScheduler()
	if err != nil {
		log.Println("An error has occurred. Check logs for info")
		return
	}
	j, err := sched.NewJob(
		gocron.CronJob("0 3 * * *", false),
		gocron.NewTask(func() {
			log.Println("Running pending purchase sweep")
			if err := common.CleanupAllPendingPurchases(); err != nil {
				log.Printf("Error sweeping pending purchases: %s\n", err.Error())
			}
		}),
	)
	if err != nil {
		log.Printf("Error running job: %s\n", err.Error())
		return
	}
	log.Printf("Job ID: %s %s\n", j.Name(), j.ID().String())
	sched.Start()
}

func StopScheduler() {
	sched, err := lib.GetScheduler()
	if err != nil {
		log.Println("Error retrieving Scheduler. Check logs for info")
		return
	}
	err = sched.Shutdown()
	if err != nil {
		log.Println("An error has occurred while stopping Scheduler. Check logs for info")
		return
	}
}
