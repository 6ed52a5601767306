package postgres

// Schema contains all SQL statements for creating tables and indexes. Applied
// at startup; every statement is idempotent.
const Schema = `
-- Activities: one row per workout, keyed by the upstream-assigned ID.
CREATE TABLE IF NOT EXISTS activities (
    activity_id VARCHAR(50) PRIMARY KEY,
    source VARCHAR(20) NOT NULL DEFAULT 'garmin',
    start_time_utc TIMESTAMP NOT NULL,
    date DATE NOT NULL,
    activity_type VARCHAR(50),
    activity_name VARCHAR(255),
    distance_km REAL,
    duration_min REAL,
    moving_time_min REAL,
    avg_hr REAL,
    max_hr REAL,
    elevation_gain_m REAL,
    avg_speed_kmh REAL,
    calories REAL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

-- Sleep: one row per night.
CREATE TABLE IF NOT EXISTS sleep (
    id SERIAL PRIMARY KEY,
    date DATE NOT NULL UNIQUE,
    sleep_start TIMESTAMP,
    sleep_end TIMESTAMP,
    sleep_duration_minutes REAL,
    deep_sleep_minutes REAL,
    light_sleep_minutes REAL,
    rem_sleep_minutes REAL,
    awake_minutes REAL,
    sleep_score REAL,
    avg_hr REAL,
    lowest_hr REAL,
    avg_respiration REAL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

-- Daily summary: one row per day of wellness metrics.
CREATE TABLE IF NOT EXISTS daily_summary (
    id SERIAL PRIMARY KEY,
    date DATE NOT NULL UNIQUE,
    steps INTEGER,
    calories REAL,
    resting_hr REAL,
    min_hr REAL,
    max_hr REAL,
    stress_avg REAL,
    body_battery_charged REAL,
    body_battery_drained REAL,
    body_battery_highest REAL,
    body_battery_lowest REAL,
    floors_climbed INTEGER,
    distance_km REAL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_activities_date ON activities(date);
CREATE INDEX IF NOT EXISTS idx_activities_type ON activities(activity_type);
CREATE INDEX IF NOT EXISTS idx_sleep_date ON sleep(date);
CREATE INDEX IF NOT EXISTS idx_daily_summary_date ON daily_summary(date);
`
