package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/oldiebutgoldie/marketplace/internal/adapter/storage"
	"github.com/oldiebutgoldie/marketplace/internal/core/service"
)

const (
	mysqlDSN      = "root:root@tcp(localhost:3306)/marketplace?parseTime=true"
	redisAddr     = "localhost:6379"
	itemID        = "stress-test-item"
	initialStock  = 20
	totalRequests = 50
)

func main() {
	ctx := context.Background()

	db, err := sql.Open("mysql", mysqlDSN)
	if err != nil {
		log.Fatalf("failed to open mysql: %v", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("failed to ping mysql: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	defer rdb.Close()

	// Seed the item under test
	_, err = db.ExecContext(ctx, `
		INSERT INTO inventory (id, metadata, reference, stock, price, item_condition, status, created_at, updated_at)
		VALUES (?, '{"title":"Stress Test LP","artist":"Nobody"}', '{}', ?, 10.00, 'VG+', 'active', NOW(3), NOW(3))
		ON DUPLICATE KEY UPDATE stock = ?, status = 'active'`,
		itemID, initialStock, initialStock)
	if err != nil {
		log.Fatalf("failed to seed inventory: %v", err)
	}
	rdb.Del(ctx, "stock:"+itemID, "item:"+itemID)

	store := storage.NewMySQLStore(db)
	cache := storage.NewRedisCache(rdb)

	queue := service.NewEventQueue(totalRequests)
	defer queue.Close()
	go func() {
		for range queue.Events() {
		}
	}()

	svc := service.NewInventoryService(store, cache, nil, queue, zerolog.Nop())

	var successCount atomic.Int32
	var failCount atomic.Int32
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := svc.Reserve(ctx, uuid.New().String(), itemID, 1)
			if err == nil {
				successCount.Add(1)
			} else {
				failCount.Add(1)
			}
		}()
	}

	wg.Wait()
	elapsed := time.Since(start)

	success := successCount.Load()
	fail := failCount.Load()

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Initial Stock:    %d\n", initialStock)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Failed:           %d\n", fail)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	if success == int32(initialStock) && fail == int32(totalRequests-initialStock) {
		fmt.Printf("PASS: Exactly %d reservations succeeded, %d failed\n", initialStock, totalRequests-initialStock)
	} else {
		fmt.Printf("FAIL: Expected %d success/%d fail, got %d/%d\n",
			initialStock, totalRequests-initialStock, success, fail)
	}

	var finalStock int
	var finalStatus string
	db.QueryRowContext(ctx, `SELECT stock, status FROM inventory WHERE id = ?`, itemID).Scan(&finalStock, &finalStatus)
	fmt.Printf("Final Stock: %d, Status: %s\n", finalStock, finalStatus)

	if finalStock == 0 && finalStatus == "sold_out" {
		fmt.Println("PASS: Stock depleted to 0 and marked sold_out")
	} else {
		fmt.Printf("FAIL: Expected stock 0/sold_out, got %d/%s\n", finalStock, finalStatus)
	}
}
