package accounts

const accountColumns = `id::text, name, email, password, phone, location, date_of_birth, gender::text,
	login_attempts, lock_until, last_login, created_at, updated_at`

const insertAccount = `INSERT INTO users (id, name, email, password, phone, location, date_of_birth, gender)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8::text::gender)
RETURNING login_attempts, lock_until, last_login, created_at, updated_at`

const selectAccountByEmail = `SELECT ` + accountColumns + `
FROM users
WHERE lower(email) = lower($1)`

const selectAccountByID = `SELECT ` + accountColumns + `
FROM users
WHERE id = $1`

const updateLoginState = `UPDATE users
SET login_attempts = $2, lock_until = $3, last_login = $4, updated_at = NOW()
WHERE id = $1`

const updateProfile = `UPDATE users
SET name = COALESCE($2, name),
	phone = COALESCE($3, phone),
	location = COALESCE($4, location),
	date_of_birth = COALESCE($5::date, date_of_birth),
	gender = COALESCE($6::text::gender, gender),
	updated_at = NOW()
WHERE id = $1
RETURNING ` + accountColumns
