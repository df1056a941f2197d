package extract

const scenarioMain = `Nuka Knights
Fallout 76 Minerva Dates:
Upcoming rotations
Minerva (List 12) Big Sale
Location: Appalachia Mo, 15th Dec 2025 (12:00) - We, 17th Dec 2025 (12:00)
Minerva (List 13)
Location: Foundation Mo, 22nd Dec 2025 (12:00) - We, 24th Dec 2025 (12:00)
`

const scenarioInventory = `Minerva inventory
Minerva (List 12)
Plan: X 100 Gold
Plan: Y 250 Gold
Minerva (List 13)
Plan: Z 999 Gold
`
