package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sekolahlab/examgate-backend/internal/config"
	"github.com/sekolahlab/examgate-backend/internal/database"
	"github.com/sekolahlab/examgate-backend/internal/logger"
)

// Seeds one demo class with students, a ready-to-sit exam and its audience
// rule. Intended for local development only.
func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	fmt.Println("=== Seeding demo exam ===")

	// Class XII TKJ 1, created if missing.
	var classID int
	err = pool.QueryRow(ctx,
		"SELECT id FROM classes WHERE grade_level = $1 AND major_code = $2 AND group_number = $3",
		"XII", "TKJ", 1,
	).Scan(&classID)
	if err != nil {
		if err != pgx.ErrNoRows {
			log.Fatal().Err(err).Msg("Failed to check existing class")
		}
		err = pool.QueryRow(ctx,
			"INSERT INTO classes (grade_level, major_code, group_number) VALUES ($1, $2, $3) RETURNING id",
			"XII", "TKJ", 1,
		).Scan(&classID)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create class")
		}
		fmt.Printf("Created class XII TKJ 1 with ID: %d\n", classID)
	} else {
		fmt.Printf("Found existing class with ID: %d\n", classID)
	}

	names := []string{
		"Budi Santoso", "Siti Aminah", "Andi Pratama", "Rina Wati", "Joko Susilo",
		"Ayu Lestari", "Dodi Kusuma", "Eka Putri", "Fahri Hamzah", "Gita Savitri",
	}
	for i, name := range names {
		nisn := fmt.Sprintf("demo%04d", i+1)
		_, err := pool.Exec(ctx,
			"INSERT INTO students (nisn, name, class_id) VALUES ($1, $2, $3) ON CONFLICT (nisn) DO NOTHING",
			nisn, name, classID,
		)
		if err != nil {
			fmt.Printf("Error creating student %s: %v\n", name, err)
		}
	}
	fmt.Printf("Seeded %d students\n", len(names))

	// One exam, open for the next 7 days, 60-minute sittings, 2 attempts.
	examID := uuid.New()
	now := time.Now()
	err = pool.QueryRow(ctx,
		`INSERT INTO exams (id, title, window_start, window_end, duration_minutes,
		                    max_attempts, shuffle_questions, negative_mark)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		examID, "Ujian Demo Jaringan Dasar", now, now.Add(7*24*time.Hour), 60, 2, true, 0,
	).Scan(&examID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create exam")
	}
	fmt.Printf("Created exam with ID: %s\n", examID)

	type q struct {
		text    string
		qtype   string
		points  float64
		correct string
		options string
	}
	questions := []q{
		{"Perangkat yang meneruskan paket antar jaringan adalah?", "SINGLE_CHOICE", 10, "b",
			`{"a": "Switch", "b": "Router", "c": "Hub", "d": "Repeater"}`},
		{"Protokol HTTP berjalan di atas TCP.", "TRUE_FALSE", 5, "true", ""},
		{"Alamat IP versi 4 memiliki panjang 32 bit.", "TRUE_FALSE", 5, "true", ""},
		{"Topologi di mana semua node terhubung ke satu titik pusat disebut?", "SINGLE_CHOICE", 10, "c",
			`{"a": "Ring", "b": "Bus", "c": "Star", "d": "Mesh"}`},
		{"Jelaskan perbedaan antara TCP dan UDP.", "FREE_TEXT", 20, "", ""},
	}
	for i, item := range questions {
		var opts interface{}
		if item.options != "" {
			opts = item.options
		}
		_, err := pool.Exec(ctx,
			`INSERT INTO questions (exam_id, question_text, question_type, points, correct_answer, options, order_num)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			examID, item.text, item.qtype, item.points, item.correct, opts, i+1,
		)
		if err != nil {
			log.Fatal().Err(err).Int("order", i+1).Msg("Failed to create question")
		}
	}
	fmt.Printf("Created %d questions\n", len(questions))

	_, err = pool.Exec(ctx,
		"INSERT INTO exam_audiences (exam_id, class_id) VALUES ($1, $2)",
		examID, classID,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create audience rule")
	}
	fmt.Println("Audience rule: class XII TKJ 1")

	fmt.Println("\nSeed completed!")
}
