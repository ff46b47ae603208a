package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	log "github.com/sirupsen/logrus"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"time"
)

// Vehicle mirrors the API's vehicle payload.
type Vehicle struct {
	ID          string `json:"id,omitempty"`
	Make        string `json:"make"`
	Model       string `json:"model"`
	Year        int    `json:"year"`
	PlateNumber string `json:"plate_number"`
	Status      string `json:"status"`
}

// Snapshot mirrors the API's maintenance snapshot payload.
type Snapshot struct {
	OverallStatus string `json:"overall_status"`
	Statuses      []struct {
		Component string `json:"component"`
		Status    string `json:"status"`
	} `json:"statuses"`
}

var authToken string

func authorizedRequest(method, url string, body []byte) (*http.Response, error) {
	req, err := http.NewRequest(method, url, bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	client := &http.Client{Timeout: 10 * time.Second}
	return client.Do(req)
}

func login(apiURL, username, password string) error {
	payload, _ := json.Marshal(map[string]string{"username": username, "password": password})
	resp, err := authorizedRequest(http.MethodPost, apiURL+"/auth/login", payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("login failed with status %d", resp.StatusCode)
	}
	var result struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return err
	}
	authToken = result.Token
	return nil
}

func createVehicle(apiURL string) (string, error) {
	makes := []string{"Ford", "Toyota", "Honda", "BMW", "Volkswagen"}
	models := []string{"Focus", "Corolla", "Civic", "320i", "Golf"}
	i := rand.Intn(len(makes))

	vehicle := Vehicle{
		Make:        makes[i],
		Model:       models[i],
		Year:        2015 + rand.Intn(10),
		PlateNumber: fmt.Sprintf("SIM-%04d", rand.Intn(10000)),
		Status:      "active",
	}
	data, _ := json.Marshal(vehicle)

	resp, err := authorizedRequest(http.MethodPost, apiURL+"/vehicles", data)
	if err != nil {
		return "", fmt.Errorf("failed to create vehicle: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("vehicle creation failed with status %d", resp.StatusCode)
	}

	var created Vehicle
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	log.WithFields(log.Fields{
		"vehicle_id": created.ID,
		"make":       vehicle.Make,
		"model":      vehicle.Model,
	}).Info("Created vehicle")
	return created.ID, nil
}

func updateOdometer(apiURL, vehicleID string, km int) error {
	payload, _ := json.Marshal(map[string]int{"mileage_km": km})
	resp, err := authorizedRequest(http.MethodPut, fmt.Sprintf("%s/vehicles/%s/odometer", apiURL, vehicleID), payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("odometer update failed with status %d", resp.StatusCode)
	}
	return nil
}

func fetchSnapshot(apiURL, vehicleID string) (*Snapshot, error) {
	resp, err := authorizedRequest(http.MethodGet, fmt.Sprintf("%s/vehicles/%s/snapshot", apiURL, vehicleID), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("snapshot failed with status %d", resp.StatusCode)
	}
	var snapshot Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func recordService(apiURL, vehicleID, component string, km int) error {
	payload, _ := json.Marshal(map[string]interface{}{
		"component":          component,
		"service_mileage_km": km,
		"cost":               50 + rand.Float64()*450,
		"currency":           "EUR",
		"provider":           "Simulated Garage",
	})
	resp, err := authorizedRequest(http.MethodPost, fmt.Sprintf("%s/vehicles/%s/maintenance", apiURL, vehicleID), payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("service record failed with status %d", resp.StatusCode)
	}
	log.WithFields(log.Fields{
		"vehicle_id": vehicleID,
		"component":  component,
		"mileage_km": km,
	}).Info("Recorded service")
	return nil
}

func main() {
	apiURL := os.Getenv("API_URL")
	if apiURL == "" {
		apiURL = "http://localhost:8080/api"
	}
	numVehicles := 5
	if v := os.Getenv("NUM_VEHICLES"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			numVehicles = parsed
		}
	}

	username := os.Getenv("SIM_USERNAME")
	password := os.Getenv("SIM_PASSWORD")
	if username != "" {
		if err := login(apiURL, username, password); err != nil {
			log.WithError(err).Fatal("Login failed")
		}
	}

	vehicleIDs := make([]string, 0, numVehicles)
	mileage := make(map[string]int)
	for i := 0; i < numVehicles; i++ {
		id, err := createVehicle(apiURL)
		if err != nil {
			log.WithError(err).Error("Vehicle creation failed")
			continue
		}
		vehicleIDs = append(vehicleIDs, id)
		mileage[id] = rand.Intn(50000)
	}
	if len(vehicleIDs) == 0 {
		log.Fatal("No vehicles created, exiting")
	}

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		for _, id := range vehicleIDs {
			// Typical drive: 20-220 km between updates.
			mileage[id] += 20 + rand.Intn(200)
			if err := updateOdometer(apiURL, id, mileage[id]); err != nil {
				log.WithError(err).WithField("vehicle_id", id).Error("Odometer update failed")
				continue
			}

			snapshot, err := fetchSnapshot(apiURL, id)
			if err != nil {
				log.WithError(err).WithField("vehicle_id", id).Error("Snapshot failed")
				continue
			}
			for _, s := range snapshot.Statuses {
				// A slightly lazy owner: fix overdue items most of the time.
				if s.Status == "overdue" && rand.Float64() < 0.7 {
					if err := recordService(apiURL, id, s.Component, mileage[id]); err != nil {
						log.WithError(err).WithField("vehicle_id", id).Error("Service record failed")
					}
				}
			}
		}
	}
}
