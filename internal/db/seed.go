package db

import (
	"fmt"
	"math/rand"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/heelo-app/heelo-server/internal/logger"
	"github.com/heelo-app/heelo-server/internal/utils/pairing"
)

// SeedTestData resets the database and populates it with demo data.
//
// Behavior:
//  1. Clears all domain tables.
//  2. Creates the clan family / subclan lookup tables.
//  3. Creates 20 complete profiles split between home region and diaspora.
//  4. Sends ~100 hellos/ignores; every mutual hello pair gets its match.
func SeedTestData(db *gorm.DB) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	tables := []string{
		"messages", "conversation_threads", "matches",
		"notifications", "interest_actions", "profiles",
		"subclans", "clan_families",
	}
	for _, table := range tables {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	logger.Info("cleared existing data")

	families := []ClanFamily{
		{ID: "cf-darood", Name: "Darood"},
		{ID: "cf-hawiye", Name: "Hawiye"},
		{ID: "cf-dir", Name: "Dir"},
		{ID: "cf-isaaq", Name: "Isaaq"},
	}
	if err := db.Create(&families).Error; err != nil {
		return fmt.Errorf("failed to seed clan families: %w", err)
	}

	subclans := []Subclan{
		{ID: "sc-majeerteen", ClanFamilyID: "cf-darood", Name: "Majeerteen"},
		{ID: "sc-ogaden", ClanFamilyID: "cf-darood", Name: "Ogaden"},
		{ID: "sc-abgaal", ClanFamilyID: "cf-hawiye", Name: "Abgaal"},
		{ID: "sc-habar-gidir", ClanFamilyID: "cf-hawiye", Name: "Habar Gidir"},
		{ID: "sc-issa", ClanFamilyID: "cf-dir", Name: "Issa"},
		{ID: "sc-habar-awal", ClanFamilyID: "cf-isaaq", Name: "Habar Awal"},
	}
	if err := db.Create(&subclans).Error; err != nil {
		return fmt.Errorf("failed to seed subclans: %w", err)
	}

	locations := map[string][]string{
		LocationHomeRegion: {"Mogadishu", "Hargeisa", "Garowe", "Kismayo"},
		LocationDiaspora:   {"London", "Minneapolis", "Toronto", "Stockholm"},
	}

	profiles := make([]Profile, 0, 20)
	for i := 1; i <= 20; i++ {
		category := LocationHomeRegion
		if i%2 == 0 {
			category = LocationDiaspora
		}
		family := families[r.Intn(len(families))]

		photoRefs := make([]string, 4)
		for j := range photoRefs {
			photoRefs[j] = fmt.Sprintf("photos/user%d/%d.jpg", i, j+1)
		}

		p := Profile{
			ID:               fmt.Sprintf("profile-%02d", i),
			DisplayName:      fmt.Sprintf("User %d", i),
			Age:              20 + r.Intn(20),
			Bio:              "Salaam! Looking forward to meeting new people.",
			PhotoRefs:        photoRefs,
			LocationCategory: category,
			LocationValue:    locations[category][r.Intn(len(locations[category]))],
			ClanFamilyID:     &family.ID,
			IsComplete:       true,
		}
		profiles = append(profiles, p)
	}
	if err := db.Create(&profiles).Error; err != nil {
		return fmt.Errorf("failed to seed profiles: %w", err)
	}
	logger.Info("seeded profiles", "count", len(profiles))

	// ~100 actions, 70% hellos; every 3rd hello is reciprocated and matched.
	counter := 0
	for i := 0; i < 100; i++ {
		sender := profiles[r.Intn(len(profiles))]
		receiver := profiles[r.Intn(len(profiles))]
		if sender.ID == receiver.ID {
			continue
		}

		kind, status := KindHello, StatusPending
		if r.Intn(100) >= 70 {
			kind, status = KindIgnore, StatusIgnored
		}

		action := InterestAction{
			SenderID:   sender.ID,
			ReceiverID: receiver.ID,
			Kind:       kind,
			Status:     status,
			CreatedAt:  time.Now().Add(-time.Duration(r.Intn(500)) * time.Hour),
		}
		res := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "sender_id"}, {Name: "receiver_id"}},
			DoNothing: true,
		}).Create(&action)
		if res.Error != nil {
			return fmt.Errorf("failed to seed interest action: %w", res.Error)
		}

		// Only a hello that actually landed gets reciprocated; a pair that
		// already holds an ignore must not be matched.
		if kind == KindHello && res.RowsAffected > 0 && counter%3 == 0 {
			recip := InterestAction{
				SenderID:   receiver.ID,
				ReceiverID: sender.ID,
				Kind:       KindHello,
				Status:     StatusPending,
				CreatedAt:  time.Now(),
			}
			recipRes := db.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "sender_id"}, {Name: "receiver_id"}},
				DoNothing: true,
			}).Create(&recip)
			if recipRes.Error != nil {
				return fmt.Errorf("failed to seed reciprocal hello: %w", recipRes.Error)
			}
			if recipRes.RowsAffected == 0 {
				counter++
				continue
			}

			low, high := pairing.Canonical(sender.ID, receiver.ID)
			match := Match{UserLowID: low, UserHighID: high}
			if err := db.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "user_low_id"}, {Name: "user_high_id"}},
				DoNothing: true,
			}).Create(&match).Error; err != nil {
				return fmt.Errorf("failed to seed match: %w", err)
			}
		}
		counter++
	}

	logger.Info("seeding completed")
	return nil
}
