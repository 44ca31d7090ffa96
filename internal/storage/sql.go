package storage

const (
	initSchemaSQL = `
CREATE TABLE IF NOT EXISTS sessions (
    session_key        INTEGER PRIMARY KEY,
    meeting_key        INTEGER NOT NULL,
    session_name       TEXT    NOT NULL,
    session_type       TEXT,
    circuit_short_name TEXT,
    year               INTEGER,
    date_start         TIMESTAMP,
    date_end           TIMESTAMP,
    imported_at        TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS drivers (
    session_key   INTEGER NOT NULL REFERENCES sessions (session_key),
    driver_number INTEGER NOT NULL,
    name_acronym  TEXT,
    full_name     TEXT,
    last_name     TEXT,
    team_name     TEXT,
    PRIMARY KEY (session_key, driver_number)
);

CREATE TABLE IF NOT EXISTS laps (
    session_key    INTEGER NOT NULL REFERENCES sessions (session_key),
    driver_number  INTEGER NOT NULL,
    lap_number     INTEGER NOT NULL,
    date_start     TIMESTAMP,
    lap_duration   REAL,
    is_pit_out_lap INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (session_key, driver_number, lap_number)
);

CREATE TABLE IF NOT EXISTS car_data (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    session_key   INTEGER   NOT NULL REFERENCES sessions (session_key),
    driver_number INTEGER   NOT NULL,
    timestamp     TIMESTAMP NOT NULL,
    speed         REAL,
    throttle      REAL,
    brake         REAL,
    rpm           REAL,
    n_gear        INTEGER,
    drs           INTEGER,
    UNIQUE (session_key, driver_number, timestamp)
);

CREATE TABLE IF NOT EXISTS locations (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    session_key   INTEGER   NOT NULL REFERENCES sessions (session_key),
    driver_number INTEGER   NOT NULL,
    timestamp     TIMESTAMP NOT NULL,
    x             REAL      NOT NULL,
    y             REAL      NOT NULL,
    UNIQUE (session_key, driver_number, timestamp)
);`

	insertSessionSQL = `
INSERT OR REPLACE INTO sessions (
                      session_key,
                      meeting_key,
                      session_name,
                      session_type,
                      circuit_short_name,
                      year,
                      date_start,
                      date_end)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	selectSessionSQL = `
SELECT 
    session_key, 
    meeting_key, 
    session_name, 
    session_type, 
    circuit_short_name,
    year,
    date_start,
    date_end
FROM sessions 
WHERE 
    session_key = ?`

	selectSessionsSQL = `
SELECT 
    session_key, 
    meeting_key, 
    session_name, 
    session_type, 
    circuit_short_name,
    year,
    date_start,
    date_end
FROM sessions
ORDER BY date_start`

	insertDriverSQL = `
INSERT OR REPLACE INTO drivers (
                     session_key,
                     driver_number,
                     name_acronym,
                     full_name,
                     last_name,
                     team_name)
VALUES (?, ?, ?, ?, ?, ?)`

	selectDriversSQL = `
SELECT 
    driver_number,
    name_acronym,
    full_name,
    last_name,
    team_name
FROM drivers
WHERE 
    session_key = ?
ORDER BY driver_number`

	insertLapSQL = `
INSERT OR REPLACE INTO laps (
                  session_key,
                  driver_number,
                  lap_number,
                  date_start,
                  lap_duration,
                  is_pit_out_lap)
VALUES (?, ?, ?, ?, ?, ?)`

	selectLapsSQL = `
SELECT 
    driver_number,
    lap_number,
    date_start,
    lap_duration,
    is_pit_out_lap
FROM laps
WHERE 
    session_key = ?
    AND driver_number = ?
ORDER BY lap_number`

	insertCarDataSQL = `
INSERT OR IGNORE INTO car_data (
                      session_key,
                      driver_number,
                      timestamp,
                      speed,
                      throttle,
                      brake,
                      rpm,
                      n_gear,
                      drs)
VALUES `

	insertLocationSQL = `
INSERT OR IGNORE INTO locations (
                       session_key,
                       driver_number,
                       timestamp,
                       x,
                       y)
VALUES `

	selectCarDataBoundsSQL = `
SELECT 
    MIN(timestamp), 
    MAX(timestamp)
FROM car_data
WHERE 
    session_key = ?
    AND driver_number = ?`

	selectCarDataSQL = `
SELECT 
    timestamp, 
    speed, 
    throttle, 
    brake, 
    rpm,
    n_gear,
    drs
FROM car_data
WHERE 
    session_key = ?
    AND driver_number = ?
    AND timestamp BETWEEN ? AND ?
ORDER BY timestamp`

	selectLocationBoundsSQL = `
SELECT 
    MIN(timestamp), 
    MAX(timestamp)
FROM locations
WHERE 
    session_key = ?
    AND driver_number = ?`

	selectLocationsSQL = `
SELECT 
    timestamp, 
    x, 
    y
FROM locations
WHERE 
    session_key = ?
    AND driver_number = ?
    AND timestamp BETWEEN ? AND ?
ORDER BY timestamp`
)
