package sqltool

// SchemaReference is the static table description embedded in the booking
// handler's prompt. It intentionally exposes only the allow-listed tables
// and the columns the model is expected to use.
const SchemaReference = `Available tables:

bookings (id uuid, booked_by uuid, car_id uuid, start_time timestamp, end_time timestamp, status text, total_amount numeric, pickup_location_id uuid, created_at timestamp)
  - status is one of: CONFIRMED, DELIVERED, RETURNED, CANCELLED
  - booked_by references users.id

payments (id uuid, booking_id uuid, amount numeric, status text, method text, paid_at timestamp, created_at timestamp)
  - booking_id references bookings.id

booking_freezes (id uuid, booking_id uuid, frozen_from timestamp, frozen_until timestamp, reason text, status text, created_at timestamp)
  - status is one of: ACTIVE, RELEASED

cars (id uuid, car_no text, brand text, model text, year int, category text, seats int, fuel_type text, transmission text, price_per_hour numeric, status text)

locations (id uuid, name text, address text, city text)

reviews (id uuid, car_id uuid, user_id uuid, rating int, comment text, created_at timestamp)

users (id uuid, name text, email text)

Rules:
- SELECT statements only, over the tables above.
- Always filter rows belonging to the current user via the booked_by column.
- Join cars and locations when it makes the answer more readable.
- Keep result sets small; at most 10 rows are returned.`
