package main

import (
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/celima-edge/celima-isa95-bridge/pkg/engine"
	"github.com/celima-edge/celima-isa95-bridge/pkg/entities"
	"github.com/celima-edge/celima-isa95-bridge/pkg/gateways/broker"
	"github.com/celima-edge/celima-isa95-bridge/pkg/logging"
	"github.com/celima-edge/celima-isa95-bridge/pkg/utils"
	"github.com/joho/godotenv"
)

const (
	defaultBroker   = "tcp://localhost:1883"
	defaultClientID = "celima-integration"
	defaultPrefix   = "celima/punta_hermosa/planta/linea"

	defaultFilterCapacity         = "1000000"
	defaultDuplicationProbability = "0.01"
	defaultFilterUsagePercentage  = "0.75"
	duplicationFilterEnabledValue = "1"
)

func getValueFromEnvironmentVariable(variableName, defaultValue string) string {
	value := os.Getenv(variableName)
	if value != "" {
		return value
	}
	return defaultValue
}

func main() {
	_ = godotenv.Load()

	logWrapper := logging.NewLogrus(getValueFromEnvironmentVariable("LOG_LEVEL", "info"), os.Stdout)
	log := logWrapper.Get("Main")

	brokerURI := defaultBroker
	clientID := defaultClientID
	isa95Prefix := defaultPrefix

	var fileConfig entities.BridgeConfig
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		parsed, err := utils.ConfigurationParser(path, entities.BridgeConfig{})
		if err != nil {
			log.WithError(err).WithField("file", path).Warn("configuration file ignored")
		} else {
			fileConfig = parsed
		}
	}
	if fileConfig.Broker != "" {
		brokerURI = fileConfig.Broker
	}
	if fileConfig.ClientID != "" {
		clientID = fileConfig.ClientID
	}
	if fileConfig.ISA95Prefix != "" {
		isa95Prefix = fileConfig.ISA95Prefix
	}

	brokerURI = getValueFromEnvironmentVariable("MQTT_BROKER", brokerURI)
	clientID = getValueFromEnvironmentVariable("MQTT_CLIENT_ID", clientID)
	isa95Prefix = getValueFromEnvironmentVariable("ISA95_PREFIX", isa95Prefix)

	args := os.Args[1:]
	if len(args) > 0 {
		brokerURI = args[0]
	}
	if len(args) > 1 {
		clientID = args[1]
	}
	if len(args) > 2 {
		isa95Prefix = args[2]
	}

	registry := engine.NewRegistry(time.Now)
	if len(fileConfig.PieceFactors) > 0 {
		registry.SetPieceFactors(fileConfig.PieceFactors)
	}
	router := engine.NewRouter(registry, isa95Prefix, logWrapper.Get("Router"))

	client := broker.NewMQTTClient(brokerURI, clientID, logWrapper.Get("MQTT"))
	bridge := broker.NewBridge(client, router, logWrapper.Get("Bridge"))

	if getValueFromEnvironmentVariable("DUPLICATION_FILTER", "0") == duplicationFilterEnabledValue {
		capacity, capacityErr := strconv.ParseUint(getValueFromEnvironmentVariable("FILTER_CAPACITY", defaultFilterCapacity), 10, 0)
		probability, probabilityErr := strconv.ParseFloat(getValueFromEnvironmentVariable("DUPLICATION_PROBABILITY", defaultDuplicationProbability), 64)
		usage, usageErr := strconv.ParseFloat(getValueFromEnvironmentVariable("RESET_FILTER_USAGE_PERCENTAGE", defaultFilterUsagePercentage), 32)
		if capacityErr != nil || probabilityErr != nil || usageErr != nil {
			log.Fatal("FILTER_CAPACITY, DUPLICATION_PROBABILITY and RESET_FILTER_USAGE_PERCENTAGE environment variables with invalid values.")
		}
		bridge.EnableDuplicationFilter(uint(capacity), probability, float32(usage)*100)
	}

	if err := bridge.Start(); err != nil {
		log.WithError(err).WithField("broker", brokerURI).Error("fatal startup failure")
		os.Exit(1)
	}
	log.WithFields(map[string]interface{}{
		"broker":   brokerURI,
		"clientId": clientID,
		"prefix":   isa95Prefix,
	}).Info("bridge running")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	bridge.Stop()
}
