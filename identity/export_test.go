package identity

// MSALError exposes the MSAL error mapping to the external tests.
var MSALError = msalError
