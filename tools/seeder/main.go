// Command seeder fills a RelayRoom deployment with demo users, rooms and
// messages. It drives the public API only, so everything it creates flows
// through the normal event pipeline.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
)

var (
	apiURL   = flag.String("api-url", "http://localhost:8080", "chat API base URL")
	users    = flag.Int("users", 10, "number of users to register")
	rooms    = flag.Int("rooms", 5, "number of rooms to create")
	messages = flag.Int("messages", 200, "number of messages to post")
	interval = flag.Duration("interval", 50*time.Millisecond, "delay between messages")
	password = flag.String("password", "seeder-pass-1", "password for all seeded users")
)

type account struct {
	ID       string
	Username string
	Token    string
}

func main() {
	flag.Parse()
	gofakeit.Seed(time.Now().UnixNano())

	client := &http.Client{Timeout: 10 * time.Second}

	log.Printf("Seeding %s: %d users, %d rooms, %d messages", *apiURL, *users, *rooms, *messages)

	accounts := make([]account, 0, *users)
	for i := 0; i < *users; i++ {
		acct, err := registerAndLogin(client)
		if err != nil {
			log.Fatalf("Failed to seed user: %v", err)
		}
		accounts = append(accounts, acct)
	}
	log.Printf("Registered %d users", len(accounts))

	roomIDs := make([]string, 0, *rooms)
	for i := 0; i < *rooms; i++ {
		owner := accounts[rand.Intn(len(accounts))]
		id, err := createRoom(client, owner.Token)
		if err != nil {
			log.Fatalf("Failed to create room: %v", err)
		}
		// Everyone else joins so any account can post.
		for _, acct := range accounts {
			if acct.ID != owner.ID {
				if err := addMember(client, owner.Token, id, acct.ID); err != nil {
					log.Printf("Failed to add %s to room %s: %v", acct.Username, id, err)
				}
			}
		}
		roomIDs = append(roomIDs, id)
	}
	log.Printf("Created %d rooms", len(roomIDs))

	sent := 0
	for i := 0; i < *messages; i++ {
		acct := accounts[rand.Intn(len(accounts))]
		roomID := roomIDs[rand.Intn(len(roomIDs))]
		if err := postMessage(client, acct.Token, roomID); err != nil {
			log.Printf("Failed to post message: %v", err)
		} else {
			sent++
			if sent%50 == 0 {
				log.Printf("Progress: %d/%d messages", sent, *messages)
			}
		}
		if *interval > 0 {
			time.Sleep(*interval)
		}
	}

	log.Printf("Done: %d messages posted", sent)
}

func registerAndLogin(client *http.Client) (account, error) {
	username := strings.ToLower(gofakeit.Username()) + fmt.Sprintf("%03d", rand.Intn(1000))
	reg := map[string]string{
		"username": username,
		"email":    gofakeit.Email(),
		"password": *password,
	}
	var user struct {
		ID string `json:"id"`
	}
	if err := post(client, "/api/v1/auth/register", "", reg, &user); err != nil {
		return account{}, fmt.Errorf("register %s: %w", username, err)
	}

	var login struct {
		AccessToken string `json:"access_token"`
	}
	creds := map[string]string{"username": username, "password": *password}
	if err := post(client, "/api/v1/auth/login", "", creds, &login); err != nil {
		return account{}, fmt.Errorf("login %s: %w", username, err)
	}

	return account{ID: user.ID, Username: username, Token: login.AccessToken}, nil
}

func createRoom(client *http.Client, token string) (string, error) {
	var room struct {
		ID string `json:"id"`
	}
	body := map[string]any{
		"name":  gofakeit.NounAbstract() + "-" + gofakeit.AdjectiveDescriptive(),
		"topic": gofakeit.Sentence(6),
	}
	if err := post(client, "/api/v1/rooms", token, body, &room); err != nil {
		return "", err
	}
	return room.ID, nil
}

func addMember(client *http.Client, token, roomID, userID string) error {
	body := map[string]string{"user_id": userID}
	return post(client, "/api/v1/rooms/"+roomID+"/members", token, body, nil)
}

func postMessage(client *http.Client, token, roomID string) error {
	body := map[string]string{"body": gofakeit.Sentence(rand.Intn(12) + 3)}
	return post(client, "/api/v1/rooms/"+roomID+"/messages", token, body, nil)
}

func post(client *http.Client, path, token string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, *apiURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s returned %d", path, resp.StatusCode)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
