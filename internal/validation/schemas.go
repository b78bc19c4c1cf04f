package validation

const emailPattern = `^[^ @]+@[^ @]+[.][^ @]+$`

var CreditCardSchema = MustSchema("credit-card",
	Rule{Field: "number", Expr: `len(compact(number)) > 0`, Message: "card number is required"},
	Rule{Field: "number", Expr: `compact(number) matches "^[0-9]{16}$"`, Message: "card number must have 16 digits"},
	Rule{Field: "name", Expr: `len(trim(name)) >= 2`, Message: "cardholder name is required"},
	Rule{Field: "cvv", Expr: `cvv matches "^[0-9]{3,4}$"`, Message: "CVV must have 3 or 4 digits"},
	Rule{Field: "installments", Expr: `installments >= 1 && installments <= 12`, Message: "select the number of installments"},
	Rule{Field: "expiry", Expr: `expiry matches "^(0[1-9]|1[0-2])/[0-9]{2}$"`, Message: "select the card expiry date"},
)

var SignInSchema = MustSchema("sign-in",
	Rule{Field: "email", Expr: `email matches "` + emailPattern + `"`, Message: "invalid email"},
	Rule{Field: "password", Expr: `len(password) >= 6`, Message: "password must have at least 6 characters"},
)

var SignUpSchema = MustSchema("sign-up",
	Rule{Field: "name", Expr: `len(trim(name)) > 0`, Message: "name is required"},
	Rule{Field: "email", Expr: `email matches "` + emailPattern + `"`, Message: "invalid email"},
	Rule{Field: "password", Expr: `len(password) >= 6`, Message: "password must have at least 6 characters"},
	Rule{Field: "confirmPassword", Expr: `len(confirmPassword) >= 6`, Message: "password must have at least 6 characters"},
	Rule{Field: "confirmPassword", Expr: `confirmPassword == password`, Message: "passwords do not match"},
)
