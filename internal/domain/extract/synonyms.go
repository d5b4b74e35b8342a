package extract

// Field names a logical column resolved through a synonym list.
type Field string

// Logical fields. Candidate order in Synonyms is the fallback order.
const (
	EventIndustry       Field = "event.industry"
	EventCountry        Field = "event.country"
	EventCity           Field = "event.city"
	EventWebsite        Field = "event.website"
	EventKeyPersonName  Field = "event.key_person_name"
	EventKeyPersonTitle Field = "event.key_person_title"
	EventKeyPersonEmail Field = "event.key_person_email"
	EventKeyPersonPhone Field = "event.key_person_phone"

	EditionYear       Field = "edition.year"
	EditionCity       Field = "edition.city"
	EditionCountry    Field = "edition.country"
	EditionAttendance Field = "edition.attendance"

	ContactOrgID      Field = "contact.organization_id"
	ContactOrgName    Field = "contact.organization_name"
	ContactSeriesID   Field = "contact.series_id"
	ContactFullName   Field = "contact.full_name"
	ContactFirstName  Field = "contact.first_name"
	ContactMiddleName Field = "contact.middle_name"
	ContactLastName   Field = "contact.last_name"
	ContactOtherName  Field = "contact.other_name"
	ContactTitle      Field = "contact.title"
	ContactEmail      Field = "contact.email"
	ContactPhone      Field = "contact.phone"
)

// Synonyms maps every logical field to its ordered candidate keys.
// Case variants are handled by Value, so only spelling variants are listed.
var Synonyms = map[Field][]string{
	EventIndustry: {"industry", "Industry Sector", "sector", "Field", "Category", "Association Type"},
	EventCountry:  {"country", "Headquarters Country", "HQ Country", "Organization Country", "Location Country"},
	EventCity:     {"city", "Headquarters City", "HQ City", "Organization City", "Location City"},
	EventWebsite:  {"website", "Web Site", "url", "Homepage", "Web"},

	EventKeyPersonName:  {"keyPersonName", "Key Person", "Key Person Name", "Contact Name", "Contact Person", "Secretary General", "President"},
	EventKeyPersonTitle: {"keyPersonTitle", "Key Person Title", "Contact Title", "Job Title", "Position"},
	EventKeyPersonEmail: {"keyPersonEmail", "Key Person Email", "Contact Email", "email", "Email Address", "E-mail"},
	EventKeyPersonPhone: {"keyPersonPhone", "Key Person Phone", "Contact Phone", "phone", "Phone Number", "Telephone", "Tel"},

	EditionYear:       {"year", "Edition Year", "editionYear", "Event Year", "EDITION_YEAR"},
	EditionCity:       {"city", "Location City", "Venue City", "Host City", "LOCATION_CITY"},
	EditionCountry:    {"country", "Location Country", "Host Country", "Venue Country", "LOCATION_COUNTRY"},
	EditionAttendance: {"totalAttendees", "attendance", "Total Attendance", "Total Attendees", "Onsite Delegates", "onsiteDelegates", "Delegates", "Number of Delegates", "REGATTEND", "Registered Attendees", "Participants"},

	ContactOrgID:      {"organizationId", "Organization ID", "Organisation ID", "ORG_ID", "Org ID", "Company ID", "ECODE"},
	ContactOrgName:    {"organizationName", "Organization", "Organisation", "Organization Name", "Organisation Name", "Company", "Company Name", "Association"},
	ContactSeriesID:   {"seriesId", "Series ID", "SERIES_ID", "Event Series ID", "Series Code"},
	ContactFullName:   {"fullName", "Full Name", "FULL_NAME", "Contact Name", "name"},
	ContactFirstName:  {"firstName", "First Name", "FIRST_NAME", "Given Name", "First"},
	ContactMiddleName: {"middleName", "Middle Name", "MIDDLE_NAME", "Middle"},
	ContactLastName:   {"lastName", "Last Name", "LAST_NAME", "Surname", "Family Name", "Last"},
	ContactOtherName:  {"Contact", "Person", "Key Person", "Delegate", "Representative"},
	ContactTitle:      {"title", "Job Title", "JOB_TITLE", "Position", "Role", "Designation"},
	ContactEmail:      {"email", "Email Address", "E-mail", "EMAIL_ADDRESS", "Work Email", "Contact Email", "Mail"},
	ContactPhone:      {"phone", "Phone Number", "PHONE_NUMBER", "Mobile", "Mobile Phone", "Telephone", "Tel", "Direct Phone", "Work Phone"},
}
