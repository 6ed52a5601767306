package explorer

// schemaDescription is the database schema as presented to the LLM. It must
// stay in step with the store schema; column comments double as hints for
// query generation.
const schemaDescription = `Available tables in PostgreSQL:

1. **activities** - One row per workout/activity
   Columns:
   - activity_id (text): Unique activity ID
   - source (text): Always 'garmin'
   - start_time_utc (timestamptz): When activity started
   - date (date): Activity date
   - activity_type (text): e.g., 'running', 'cycling', 'strength_training'
   - activity_name (text): Name given to the activity
   - distance_km (double precision): Distance in kilometers
   - duration_min (double precision): Total duration in minutes
   - moving_time_min (double precision): Time actually moving
   - avg_hr (double precision): Average heart rate (bpm)
   - max_hr (double precision): Maximum heart rate (bpm)
   - elevation_gain_m (double precision): Elevation gain in meters
   - avg_speed_kmh (double precision): Average speed in km/h
   - calories (double precision): Calories burned

2. **sleep** - One row per night's sleep
   Columns:
   - date (date): Date of the sleep (usually the morning you woke up)
   - sleep_start (timestamptz): When you went to sleep
   - sleep_end (timestamptz): When you woke up
   - sleep_duration_minutes (double precision): Total sleep time
   - deep_sleep_minutes (double precision): Deep sleep duration
   - light_sleep_minutes (double precision): Light sleep duration
   - rem_sleep_minutes (double precision): REM sleep duration
   - awake_minutes (double precision): Time awake during the night
   - sleep_score (double precision): Overall sleep score (0-100)
   - avg_hr (double precision): Average heart rate during sleep
   - lowest_hr (double precision): Lowest heart rate during sleep
   - avg_respiration (double precision): Average respiration rate

3. **daily_summary** - One row per day with wellness metrics
   Columns:
   - date (date): The date
   - steps (bigint): Total steps
   - calories (double precision): Active calories burned
   - resting_hr (double precision): Resting heart rate for the day
   - min_hr (double precision): Minimum heart rate
   - max_hr (double precision): Maximum heart rate
   - stress_avg (double precision): Average stress level
   - body_battery_charged (double precision): Body battery charged amount
   - body_battery_drained (double precision): Body battery drained amount
   - body_battery_highest (double precision): Highest body battery level
   - body_battery_lowest (double precision): Lowest body battery level
   - floors_climbed (bigint): Floors climbed
   - distance_km (double precision): Total distance in km

Notes:
- Use PostgreSQL syntax
- Date functions: CURRENT_DATE, date - INTERVAL '30 days', date_trunc('week', date), etc.
- Aggregations: AVG(), SUM(), COUNT(), etc.
- Window functions are supported`
