package config

const DefaultDatabasePath = "./doctors.db"
