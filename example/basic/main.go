package main

import (
	"context"
	"fmt"
	"log"

	"github.com/siherrmann/medrag"
	"github.com/siherrmann/medrag/helper"
	"github.com/siherrmann/medrag/model"
)

const sampleContent = `Implantable pacemakers from Medtronic and Abbott were followed in a registry of 4,200 patients.
Lead fracture was the most common mechanical failure and occurred in 1.3 percent of patients within five years.
Most fractures were detected by remote monitoring before symptoms appeared.

Battery depletion was the main reason for generator replacement.
Devices with rate response programming reached elective replacement about one year earlier.
Leadless pacemakers avoided lead fracture entirely but showed a higher rate of early dislodgement.`

func main() {
	ctx := context.Background()

	// Start a test PostgreSQL container
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(ctx)

	// Create database configuration using the container port
	dbConfig := &helper.DatabaseConfiguration{
		Host:     "localhost",
		Port:     dbPort,
		Database: "database",
		Username: "user",
		Password: "password",
		Schema:   "public",
		SSLMode:  "disable",
	}

	// Chat model settings come from MEDRAG_LLM_* variables or a .env file
	llmConfig, err := helper.NewLLMConfiguration()
	if err != nil {
		log.Fatalf("Failed to read LLM configuration: %v", err)
	}

	r, err := medrag.NewResearcher(ctx, dbConfig, llmConfig, &helper.CacheConfiguration{Backend: "postgres"}, model.DefaultSearchConfig())
	if err != nil {
		log.Fatalf("Failed to create researcher: %v", err)
	}
	defer r.Close(ctx)

	fmt.Println("Ingesting registry report...")
	numChunks, err := r.Ingest(ctx, sampleContent, model.Metadata{
		"title":   "Pacemaker registry report",
		"authors": []string{"Example Author"},
		"year":    "2024",
	})
	if err != nil {
		log.Fatalf("Failed to ingest text: %v", err)
	}
	fmt.Printf("Inserted %d chunks\n", numChunks)

	relations := [][2]string{
		{"pacemaker", "Medtronic"},
		{"pacemaker", "Abbott"},
		{"lead", "Medtronic"},
	}
	for _, relation := range relations {
		if _, err := r.AddRelation(ctx, relation[0], relation[1], "related_to", true); err != nil {
			log.Fatalf("Failed to add relation: %v", err)
		}
	}

	queryText := "How often do pacemaker leads fracture?"
	fmt.Printf("\nQuerying: %s\n", queryText)

	answer, err := r.Search(ctx, queryText, model.SearchModeNormal, 0.5)
	if err != nil {
		log.Fatalf("Failed to search: %v", err)
	}
	fmt.Printf("\n%s\n", answer)

	// The same question again is answered from the cache
	cached, err := r.Search(ctx, queryText, model.SearchModeNormal, 0.5)
	if err != nil {
		log.Fatalf("Failed to search: %v", err)
	}
	fmt.Printf("\nAnswered from cache: %t\n", cached == answer)

	fmt.Println("\nBasic example completed successfully!")
}
